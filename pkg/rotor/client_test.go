package rotor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientGetters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/assets":
			w.Write([]byte(`[{"symbol":"510300","name":"CSI 300 ETF","category":"equity","market":"cn"}]`))
		case "/api/nav":
			w.Write([]byte(`[{"date":"2024-06-03","nav":1000,"turnover":0,"commission":0}]`))
		case "/api/metrics":
			w.Write([]byte(`{"totalReturn":0.42,"sharpeRatio":0.9,"maxDrawdown":-0.12}`))
		case "/api/signal":
			w.Write([]byte(`{"strategy":"momentum-rotation","date":"2024-06-03","applyDate":"2024-06-04","choice":"panic","weights":{"518880":0.4,"511990":0.6}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	assets, err := c.GetAssets(ctx)
	if err != nil {
		t.Fatalf("GetAssets: %v", err)
	}
	if len(assets) != 1 || assets[0].Symbol != "510300" {
		t.Errorf("assets = %+v", assets)
	}

	nav, err := c.GetNav(ctx)
	if err != nil {
		t.Fatalf("GetNav: %v", err)
	}
	if len(nav) != 1 || nav[0].NAV != 1000 {
		t.Errorf("nav = %+v", nav)
	}

	m, err := c.GetMetrics(ctx)
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if m.TotalReturn != 0.42 {
		t.Errorf("metrics = %+v", m)
	}

	sig, err := c.GetSignal(ctx)
	if err != nil {
		t.Fatalf("GetSignal: %v", err)
	}
	if sig.Choice != "panic" || sig.Weights["518880"] != 0.4 {
		t.Errorf("signal = %+v", sig)
	}
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.GetNav(context.Background()); err == nil {
		t.Error("expected error for 500 response")
	}
}
