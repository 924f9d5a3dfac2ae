package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradepost/ledger"
	"tradepost/native/trade"
)

func newTestServer(t *testing.T) (*httptest.Server, *ledger.Currency) {
	t.Helper()
	inventory := ledger.NewInventory()
	currency := ledger.NewCurrency()
	currency.Credit("alice", 100)
	currency.Credit("bob", 40)
	tiers := ledger.NewStaticTiers(nil, "novice")
	engine := trade.NewEngine(trade.Config{
		FeePercent: 5,
		RateLimit:  trade.RateLimitConfig{BurstCap: 1000},
	}, inventory, currency, tiers)
	srv := httptest.NewServer(NewServer(engine, nil).Router())
	t.Cleanup(srv.Close)
	return srv, currency
}

func doJSON(t *testing.T, method, url, actor string, body any) *http.Response {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, url, &payload)
	require.NoError(t, err)
	if actor != "" {
		req.Header.Set(actorHeader, actor)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestOfferFlowOverHTTP(t *testing.T) {
	srv, currency := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/offers", "alice", trade.OfferProposal{
		OfferedCurrency:   50,
		RequestedCurrency: 30,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	receipt := decode[trade.OfferReceipt](t, resp)
	require.NotEmpty(t, receipt.OfferID)

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/offers", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listing := decode[struct {
		Offers []*trade.Offer `json:"offers"`
	}](t, resp)
	require.Len(t, listing.Offers, 1)
	require.Equal(t, trade.OfferPending, listing.Offers[0].Status)

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/offers/"+receipt.OfferID+"/accept", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[trade.AcceptResult](t, resp)
	require.Equal(t, int64(4), result.Fee)
	require.Equal(t, int64(48), result.ReceivedCurrency)
	require.Equal(t, int64(58), currency.Balance("bob"))
	require.Equal(t, int64(78), currency.Balance("alice"))

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/history?limit=5", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[struct {
		Offers []*trade.Offer `json:"offers"`
	}](t, resp)
	require.Len(t, history.Offers, 1)
	require.Equal(t, trade.OfferCompleted, history.Offers[0].Status)
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	// Missing actor header.
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/offers", "", trade.OfferProposal{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Malformed proposal.
	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/offers", "alice", trade.OfferProposal{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[struct {
		Error string `json:"error"`
	}](t, resp)
	require.Equal(t, "validation", body.Error)

	// Unknown offer id.
	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/offers/nope/accept", "bob", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Insufficient assets.
	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/offers", "pauper", trade.OfferProposal{
		OfferedCurrency:   10,
		RequestedCurrency: 5,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body = decode[struct {
		Error string `json:"error"`
	}](t, resp)
	require.Equal(t, "insufficient_assets", body.Error)

	// Cancelling someone else's offer.
	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/offers", "alice", trade.OfferProposal{
		OfferedCurrency:   10,
		RequestedCurrency: 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	receipt := decode[trade.OfferReceipt](t, resp)
	resp = doJSON(t, http.MethodDelete, srv.URL+"/v1/offers/"+receipt.OfferID, "mallory", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestRateLimitMapsTo429(t *testing.T) {
	inventory := ledger.NewInventory()
	currency := ledger.NewCurrency()
	currency.Credit("alice", 1000)
	engine := trade.NewEngine(trade.Config{
		RateLimit: trade.RateLimitConfig{Cooldown: 30 * time.Second, BurstCap: 1000},
	}, inventory, currency, ledger.NewStaticTiers(nil, "novice"))
	srv := httptest.NewServer(NewServer(engine, nil).Router())
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/offers", "alice", trade.OfferProposal{
		OfferedCurrency: 10, RequestedCurrency: 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/offers", "alice", trade.OfferProposal{
		OfferedCurrency: 10, RequestedCurrency: 5,
	})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
}
