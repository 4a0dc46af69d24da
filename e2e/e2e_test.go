// Package e2e drives the assembled HTTP stack through full user journeys:
// incorporation, issuance, funding, transfers, and streams. Everything runs
// against in-memory stores and the in-process chain simulator, so the suite
// exercises exactly the wiring cmd/server uses without external services.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/golang-jwt/jwt/v5"

	"incorp/internal/audit"
	companyhandler "incorp/internal/company/handler"
	companyservice "incorp/internal/company/service"
	companystore "incorp/internal/company/store"
	"incorp/internal/funding"
	fundinghandler "incorp/internal/funding/handler"
	"incorp/internal/funding/idempotency"
	ledgermemory "incorp/internal/ledger/memory"
	paymenthandler "incorp/internal/payment/handler"
	paymentservice "incorp/internal/payment/service"
	paymentstore "incorp/internal/payment/store"
	streamhandler "incorp/internal/stream/handler"
	streamservice "incorp/internal/stream/service"
	streamstore "incorp/internal/stream/store"
	httptransport "incorp/internal/transport/http"
	userhandler "incorp/internal/user/handler"
	userservice "incorp/internal/user/service"
	userstore "incorp/internal/user/store"
	"incorp/pkg/domain"
	"incorp/pkg/platform/middleware/auth"
)

const signingKey = "e2e-signing-key"

// world is one scenario's state: a freshly assembled server plus the
// identities and responses accumulated by the steps.
type world struct {
	server *httptest.Server

	users  map[string]domain.UserID
	tokens map[string]string

	lastStatus int
	lastBody   []byte
	streamID   string
}

func newWorld() *world {
	logger := slog.Default()
	chain := ledgermemory.New()

	companies := companystore.NewMemory()
	payments := paymentstore.NewMemory()
	streams := streamstore.NewMemory()
	profiles := userstore.NewMemory()
	sink := audit.NewMemoryStore()
	auditPub := audit.NewPublisher(sink)

	companySvc := companyservice.New(companies, chain,
		companyservice.WithAuditPublisher(auditPub))
	fundingSvc := funding.NewService(companies, chain, idempotency.NewMemory(),
		funding.WithAuditPublisher(auditPub),
		funding.WithProfiles(profiles))
	paymentSvc := paymentservice.New(payments, companies, chain,
		paymentservice.WithAuditPublisher(auditPub),
		paymentservice.WithProfiles(profiles))
	streamSvc := streamservice.New(streams, companies, paymentSvc, chain,
		streamservice.WithAuditPublisher(auditPub))
	userSvc := userservice.New(profiles, chain,
		userservice.WithAuditPublisher(auditPub))

	router := httptransport.NewRouter(httptransport.Deps{
		Validator: auth.NewValidator(signingKey),
		Logger:    logger,
		Handlers: []httptransport.Registrar{
			companyhandler.New(companySvc, logger),
			fundinghandler.New(fundingSvc, logger),
			paymenthandler.New(paymentSvc, logger),
			streamhandler.New(streamSvc, logger),
			userhandler.New(userSvc, logger),
		},
	})

	return &world{
		server: httptest.NewServer(router),
		users:  make(map[string]domain.UserID),
		tokens: make(map[string]string),
	}
}

func (w *world) close() {
	w.server.Close()
}

func (w *world) tokenFor(email string) (string, error) {
	if token, ok := w.tokens[email]; ok {
		return token, nil
	}
	userID := domain.NewUserID()
	claims := auth.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		return "", err
	}
	w.users[email] = userID
	w.tokens[email] = signed
	return signed, nil
}

func (w *world) do(method, path, email string, body any) error {
	var payload *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(encoded)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, w.server.URL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	token, err := w.tokenFor(email)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := w.server.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return err
	}
	w.lastStatus = resp.StatusCode
	w.lastBody = buf.Bytes()
	return nil
}

func (w *world) expectStatus(status int) error {
	if w.lastStatus != status {
		return fmt.Errorf("expected status %d, got %d (body: %s)", status, w.lastStatus, w.lastBody)
	}
	return nil
}

func (w *world) field(name string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(w.lastBody, &body); err != nil {
		return nil, fmt.Errorf("decode response: %w (body: %s)", err, w.lastBody)
	}
	value, ok := body[name]
	if !ok {
		return nil, fmt.Errorf("response has no field %q (body: %s)", name, w.lastBody)
	}
	return value, nil
}

func (w *world) verifiedUser(email string) error {
	if err := w.do(http.MethodPost, "/profile/verify", email, struct{}{}); err != nil {
		return err
	}
	return w.expectStatus(http.StatusOK)
}

func (w *world) createsCompany(email, handle, name string) error {
	if err := w.do(http.MethodPost, "/companies", email, map[string]any{
		"handle":   handle,
		"name":     name,
		"email":    email,
		"director": "The Director",
	}); err != nil {
		return err
	}
	return w.expectStatus(http.StatusCreated)
}

func (w *world) issuesShares(email string, total int, handle string, table *godog.Table) error {
	splits := make([]map[string]any, 0, len(table.Rows))
	for _, row := range table.Rows {
		if len(row.Cells) != 2 {
			return fmt.Errorf("split rows need an email and a percent, got %d cells", len(row.Cells))
		}
		percent, err := strconv.ParseFloat(row.Cells[1].Value, 64)
		if err != nil {
			return err
		}
		splits = append(splits, map[string]any{
			"email":   row.Cells[0].Value,
			"percent": percent,
		})
	}
	return w.do(http.MethodPost, "/companies/"+handle+"/shares", email, map[string]any{
		"total_shares": total,
		"splits":       splits,
	})
}

func (w *world) capTableLists(handle, email string, shares int) error {
	if err := w.do(http.MethodGet, "/companies/"+handle+"/shareholders", email, nil); err != nil {
		return err
	}
	if err := w.expectStatus(http.StatusOK); err != nil {
		return err
	}
	var holders []struct {
		Email  string `json:"email"`
		Shares int64  `json:"shares"`
	}
	if err := json.Unmarshal(w.lastBody, &holders); err != nil {
		return err
	}
	for _, h := range holders {
		if h.Email == email {
			if h.Shares != int64(shares) {
				return fmt.Errorf("expected %d shares for %s, got %d", shares, email, h.Shares)
			}
			return nil
		}
	}
	return fmt.Errorf("%s not on the cap table of %s", email, handle)
}

func (w *world) funds(email string, amount int, handle string) error {
	return w.do(http.MethodPost, "/companies/"+handle+"/fund", email, map[string]any{
		"amount": amount,
	})
}

func (w *world) fundingState(state string) error {
	if err := w.expectStatus(http.StatusOK); err != nil {
		return err
	}
	got, err := w.field("state")
	if err != nil {
		return err
	}
	if got != state {
		return fmt.Errorf("expected funding state %q, got %v", state, got)
	}
	return nil
}

func (w *world) flipped(expected bool) error {
	got, err := w.field("flipped")
	if err != nil {
		return err
	}
	if got != expected {
		return fmt.Errorf("expected flipped=%v, got %v", expected, got)
	}
	return nil
}

func (w *world) balanceIs(handle string, balance int) error {
	if err := w.do(http.MethodGet, "/companies/"+handle+"/balance", "founder@acme.test", nil); err != nil {
		return err
	}
	if err := w.expectStatus(http.StatusOK); err != nil {
		return err
	}
	got, err := w.field("balance")
	if err != nil {
		return err
	}
	if got != float64(balance) {
		return fmt.Errorf("expected balance %d for %s, got %v", balance, handle, got)
	}
	return nil
}

func (w *world) transfers(email string, amount int, from, to string) error {
	return w.do(http.MethodPost, "/payments/transfer", email, map[string]any{
		"from":        from,
		"to":          to,
		"amount":      amount,
		"description": "treasury transfer",
	})
}

func (w *world) ledgerHasRows(handle string, count int) error {
	if err := w.do(http.MethodGet, "/companies/"+handle+"/payments", "founder@acme.test", nil); err != nil {
		return err
	}
	if err := w.expectStatus(http.StatusOK); err != nil {
		return err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(w.lastBody, &rows); err != nil {
		return err
	}
	if len(rows) != count {
		return fmt.Errorf("expected %d ledger rows for %s, got %d", count, handle, len(rows))
	}
	return nil
}

func (w *world) opensStream(email, handle, payee string, rate int) error {
	payeeID, ok := w.users[payee]
	if !ok {
		return fmt.Errorf("unknown payee %q, declare them as a verified user first", payee)
	}
	if err := w.do(http.MethodPost, "/companies/"+handle+"/streams", email, map[string]any{
		"payee": payeeID.String(),
		"rate":  rate,
	}); err != nil {
		return err
	}
	if err := w.expectStatus(http.StatusCreated); err != nil {
		return err
	}
	id, err := w.field("id")
	if err != nil {
		return err
	}
	w.streamID, _ = id.(string)
	return nil
}

func (w *world) claimsStream(email string) error {
	if w.streamID == "" {
		return fmt.Errorf("no stream has been opened in this scenario")
	}
	return w.do(http.MethodPost, "/streams/"+w.streamID+"/claim", email, struct{}{})
}

func (w *world) claimPays(amount int) error {
	if err := w.expectStatus(http.StatusOK); err != nil {
		return err
	}
	got, err := w.field("amount")
	if err != nil {
		return err
	}
	if got != float64(amount) {
		return fmt.Errorf("expected claim amount %d, got %v", amount, got)
	}
	return nil
}

func (w *world) rejectedWith(status int) error {
	return w.expectStatus(status)
}

func InitializeScenario(sc *godog.ScenarioContext) {
	w := newWorld()
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		w.close()
		return ctx, err
	})

	sc.Step(`^a verified user "([^"]*)"$`, w.verifiedUser)
	sc.Step(`^"([^"]*)" creates company "([^"]*)" named "([^"]*)"$`, w.createsCompany)
	sc.Step(`^"([^"]*)" issues (\d+) shares of "([^"]*)" split:$`, w.issuesShares)
	sc.Step(`^the cap table of "([^"]*)" lists "([^"]*)" with (\d+) shares$`, w.capTableLists)
	sc.Step(`^"([^"]*)" funds (\d+) into "([^"]*)"$`, w.funds)
	sc.Step(`^the funding state is "([^"]*)"$`, w.fundingState)
	sc.Step(`^the funded flag was flipped$`, func() error { return w.flipped(true) })
	sc.Step(`^the funded flag was not flipped$`, func() error { return w.flipped(false) })
	sc.Step(`^the balance of "([^"]*)" is (\d+)$`, w.balanceIs)
	sc.Step(`^"([^"]*)" transfers (\d+) from "([^"]*)" to "([^"]*)"$`, w.transfers)
	sc.Step(`^the payment ledger of "([^"]*)" has (\d+) rows?$`, w.ledgerHasRows)
	sc.Step(`^"([^"]*)" opens a stream on "([^"]*)" paying "([^"]*)" at rate (\d+)$`, w.opensStream)
	sc.Step(`^"([^"]*)" claims the stream$`, w.claimsStream)
	sc.Step(`^the claim pays (\d+)$`, w.claimPays)
	sc.Step(`^the request is rejected with status (\d+)$`, w.rejectedWith)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature suite failed")
	}
}
