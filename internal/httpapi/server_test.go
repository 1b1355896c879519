package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AuroraPeakLabs/points/pkg/points"
)

// stubLedger returns canned results and records the arguments it saw.
type stubLedger struct {
	giftResult       []points.Transaction
	giftErr          error
	exchangeResult   points.Transaction
	exchangeErr      error
	distributeResult points.DistributionSummary
	distributeErr    error

	giftProgramID     points.ProgramID
	giftSender        points.UserID
	giftRecipients    []points.GiftRecipient
	exchangeWalletID  points.WalletID
	exchangeLines     []points.ExchangeLine
	distributeRange   points.DateRange
	distributeProgram points.ProgramID
}

func (ledger *stubLedger) Gift(ctx context.Context, programID points.ProgramID, senderUserID points.UserID, recipients []points.GiftRecipient) ([]points.Transaction, error) {
	ledger.giftProgramID = programID
	ledger.giftSender = senderUserID
	ledger.giftRecipients = recipients
	return ledger.giftResult, ledger.giftErr
}

func (ledger *stubLedger) Exchange(ctx context.Context, destinationWalletID points.WalletID, lines []points.ExchangeLine) (points.Transaction, error) {
	ledger.exchangeWalletID = destinationWalletID
	ledger.exchangeLines = lines
	return ledger.exchangeResult, ledger.exchangeErr
}

func (ledger *stubLedger) Distribute(ctx context.Context, programID points.ProgramID, dateRange points.DateRange) (points.DistributionSummary, error) {
	ledger.distributeProgram = programID
	ledger.distributeRange = dateRange
	return ledger.distributeResult, ledger.distributeErr
}

func newTestRouter(test *testing.T, ledger *stubLedger) http.Handler {
	test.Helper()
	return NewRouter(Config{AuthDisabled: true}, ledger, zap.NewNop())
}

func performJSON(test *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	test.Helper()
	payload, err := json.Marshal(body)
	require.NoError(test, err)
	request := httptest.NewRequest(method, path, bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestHealthz(test *testing.T) {
	test.Parallel()
	router := newTestRouter(test, &stubLedger{})
	request := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	require.Equal(test, http.StatusOK, recorder.Code)
}

func TestGiftEndpointCreatesTransactions(test *testing.T) {
	test.Parallel()
	sourceWalletID := mustWalletID(test, "wallet-sender")
	ledger := &stubLedger{giftResult: []points.Transaction{{
		TransactionID:       "tx-1",
		ProgramID:           mustProgramID(test, "program-1"),
		Type:                points.TransactionGift,
		Amount:              10,
		SourceWalletID:      &sourceWalletID,
		DestinationWalletID: mustWalletID(test, "wallet-alice"),
		CreatedUnixUTC:      1767225600,
	}}}
	router := newTestRouter(test, ledger)

	recorder := performJSON(test, router, http.MethodPost, "/api/programs/program-1/gifts", map[string]any{
		"senderUserId": "sender",
		"recipients":   []map[string]any{{"userId": "alice", "points": 10}},
	})

	require.Equal(test, http.StatusCreated, recorder.Code)
	require.Equal(test, "program-1", ledger.giftProgramID.String())
	require.Equal(test, "sender", ledger.giftSender.String())
	require.Len(test, ledger.giftRecipients, 1)
	require.Equal(test, "alice", ledger.giftRecipients[0].UserID.String())
	require.Equal(test, int64(10), ledger.giftRecipients[0].Points.Int64())

	var decoded struct {
		Transactions []transactionResponse `json:"transactions"`
	}
	require.NoError(test, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	require.Len(test, decoded.Transactions, 1)
	require.Equal(test, "tx-1", decoded.Transactions[0].TransactionID)
	require.Equal(test, "GIFT", decoded.Transactions[0].Type)
	require.NotNil(test, decoded.Transactions[0].SourceWalletID)
	require.Equal(test, "wallet-sender", *decoded.Transactions[0].SourceWalletID)
}

func TestGiftEndpointRejectsMalformedBody(test *testing.T) {
	test.Parallel()
	router := newTestRouter(test, &stubLedger{})
	request := httptest.NewRequest(http.MethodPost, "/api/programs/program-1/gifts", bytes.NewReader([]byte("{")))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	require.Equal(test, http.StatusBadRequest, recorder.Code)
}

func TestExchangeEndpointCreatesTransaction(test *testing.T) {
	test.Parallel()
	ledger := &stubLedger{exchangeResult: points.Transaction{
		TransactionID:       "tx-9",
		ProgramID:           mustProgramID(test, "program-1"),
		Type:                points.TransactionExchange,
		Amount:              200,
		DestinationWalletID: mustWalletID(test, "wallet-alice"),
		Items: []points.TransactionItem{
			{ItemID: mustItemID(test, "mug"), Quantity: 2, TotalPointsForLine: 200},
		},
		CreatedUnixUTC: 1767225600,
	}}
	router := newTestRouter(test, ledger)

	recorder := performJSON(test, router, http.MethodPost, "/api/exchanges", map[string]any{
		"destinationWalletId": "wallet-alice",
		"lines":               []map[string]any{{"itemId": "mug", "quantity": 2}},
	})

	require.Equal(test, http.StatusCreated, recorder.Code)
	require.Equal(test, "wallet-alice", ledger.exchangeWalletID.String())
	require.Len(test, ledger.exchangeLines, 1)

	var decoded struct {
		Transaction transactionResponse `json:"transaction"`
	}
	require.NoError(test, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	require.Equal(test, "EXCHANGE", decoded.Transaction.Type)
	require.Nil(test, decoded.Transaction.SourceWalletID)
	require.Len(test, decoded.Transaction.Items, 1)
	require.Equal(test, int64(200), decoded.Transaction.Items[0].TotalPointsForLine)
}

func TestDistributeEndpointReturnsSummary(test *testing.T) {
	test.Parallel()
	ledger := &stubLedger{distributeResult: points.DistributionSummary{
		UsersProcessed:      3,
		PointsDistributed:   24,
		TransactionsCreated: 1,
		PerUser: []points.UserDistribution{{
			UserID:    mustUserID(test, "alice"),
			WalletID:  mustWalletID(test, "wallet-alice"),
			Points:    24,
			Breakdown: map[points.PolicyType]int64{points.PolicyNotLate: 20, points.PolicyOvertime: 4},
		}},
	}}
	router := newTestRouter(test, ledger)

	recorder := performJSON(test, router, http.MethodPost, "/api/programs/program-1/distributions", map[string]any{
		"from": "2026-03-01",
		"to":   "2026-03-31",
	})

	require.Equal(test, http.StatusOK, recorder.Code)
	require.Equal(test, "program-1", ledger.distributeProgram.String())
	require.Equal(test, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), ledger.distributeRange.From)

	var decoded distributionResponse
	require.NoError(test, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	require.Equal(test, 3, decoded.UsersProcessed)
	require.Equal(test, int64(24), decoded.PointsDistributed)
	require.Len(test, decoded.PerUser, 1)
	require.Equal(test, int64(20), decoded.PerUser[0].Breakdown["NOT_LATE"])
}

func TestDistributeEndpointRejectsBadDates(test *testing.T) {
	test.Parallel()
	router := newTestRouter(test, &stubLedger{})
	recorder := performJSON(test, router, http.MethodPost, "/api/programs/program-1/distributions", map[string]any{
		"from": "March 1st",
		"to":   "2026-03-31",
	})
	require.Equal(test, http.StatusBadRequest, recorder.Code)
}

func TestErrorStatusMapping(test *testing.T) {
	test.Parallel()
	cases := []struct {
		err    error
		status int
	}{
		{points.ErrInvalidRequest, http.StatusBadRequest},
		{points.ErrProgramNotFound, http.StatusNotFound},
		{points.ErrWalletNotFound, http.StatusNotFound},
		{points.ErrItemNotFound, http.StatusNotFound},
		{points.ErrProgramInactive, http.StatusConflict},
		{points.ErrInsufficientBudget, http.StatusUnprocessableEntity},
		{points.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{points.ErrInsufficientStock, http.StatusUnprocessableEntity},
		{fmt.Errorf("database gone"), http.StatusInternalServerError},
	}
	for _, testCase := range cases {
		testCase := testCase
		test.Run(testCase.err.Error(), func(test *testing.T) {
			test.Parallel()
			ledger := &stubLedger{exchangeErr: fmt.Errorf("exchange: %w", testCase.err)}
			router := newTestRouter(test, ledger)
			recorder := performJSON(test, router, http.MethodPost, "/api/exchanges", map[string]any{
				"destinationWalletId": "wallet-alice",
				"lines":               []map[string]any{{"itemId": "mug", "quantity": 1}},
			})
			require.Equal(test, testCase.status, recorder.Code)
		})
	}
}

func TestInternalErrorsAreMasked(test *testing.T) {
	test.Parallel()
	ledger := &stubLedger{exchangeErr: fmt.Errorf("dial tcp 10.0.0.5: connection refused")}
	router := newTestRouter(test, ledger)
	recorder := performJSON(test, router, http.MethodPost, "/api/exchanges", map[string]any{
		"destinationWalletId": "wallet-alice",
		"lines":               []map[string]any{{"itemId": "mug", "quantity": 1}},
	})
	require.Equal(test, http.StatusInternalServerError, recorder.Code)
	require.NotContains(test, recorder.Body.String(), "10.0.0.5")
	require.Contains(test, recorder.Body.String(), "internal error")
}

func TestBearerAuth(test *testing.T) {
	test.Parallel()
	const signingKey = "test-signing-key"
	router := NewRouter(Config{AuthSigningKey: signingKey}, &stubLedger{}, zap.NewNop())

	newRequest := func() *http.Request {
		payload, err := json.Marshal(map[string]any{
			"destinationWalletId": "wallet-alice",
			"lines":               []map[string]any{{"itemId": "mug", "quantity": 1}},
		})
		require.NoError(test, err)
		request := httptest.NewRequest(http.MethodPost, "/api/exchanges", bytes.NewReader(payload))
		request.Header.Set("Content-Type", "application/json")
		return request
	}

	test.Run("missing token", func(test *testing.T) {
		request := newRequest()
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		require.Equal(test, http.StatusUnauthorized, recorder.Code)
	})

	test.Run("garbage token", func(test *testing.T) {
		request := newRequest()
		request.Header.Set("Authorization", "Bearer not-a-token")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		require.Equal(test, http.StatusUnauthorized, recorder.Code)
	})

	test.Run("wrong key", func(test *testing.T) {
		token := signToken(test, "other-key", "alice")
		request := newRequest()
		request.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		require.Equal(test, http.StatusUnauthorized, recorder.Code)
	})

	test.Run("valid token", func(test *testing.T) {
		token := signToken(test, signingKey, "alice")
		request := newRequest()
		request.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		require.Equal(test, http.StatusCreated, recorder.Code)
	})
}

func signToken(test *testing.T, key string, subject string) string {
	test.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(test, err)
	return signed
}

func mustProgramID(test *testing.T, raw string) points.ProgramID {
	test.Helper()
	value, err := points.NewProgramID(raw)
	require.NoError(test, err)
	return value
}

func mustUserID(test *testing.T, raw string) points.UserID {
	test.Helper()
	value, err := points.NewUserID(raw)
	require.NoError(test, err)
	return value
}

func mustWalletID(test *testing.T, raw string) points.WalletID {
	test.Helper()
	value, err := points.NewWalletID(raw)
	require.NoError(test, err)
	return value
}

func mustItemID(test *testing.T, raw string) points.ItemID {
	test.Helper()
	value, err := points.NewItemID(raw)
	require.NoError(test, err)
	return value
}
