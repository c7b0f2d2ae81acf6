package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubInventory serves the /fill contract over a real ledger, the way the
// inventory service does.
func stubInventory(t *testing.T, l *Ledger) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/fill", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(l.Read())
		case http.MethodDelete:
			var body map[string]int
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "No values to update"})
				return
			}
			amounts := make([]Amount, 0, len(body))
			for k, v := range body {
				amounts = append(amounts, Amount{Ingredient: k, Quantity: v})
			}
			updated, err := l.TryDeduct(r.Context(), amounts)
			if err != nil {
				var insufficient *InsufficientStockError
				if errors.As(err, &insufficient) {
					w.WriteHeader(http.StatusBadRequest)
					json.NewEncoder(w).Encode(map[string]any{
						"error":      insufficient.Ingredient + " underflow",
						"ingredient": insufficient.Ingredient,
						"required":   insufficient.Required,
						"available":  insufficient.Available,
					})
					return
				}
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			resp := map[string]any{"message": "Inventory updated"}
			for k, v := range updated {
				resp[k] = v
			}
			json.NewEncoder(w).Encode(resp)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Read(t *testing.T) {
	l := New(Snapshot{"beans": 20, "milk": 10})
	srv := stubInventory(t, l)
	client := NewClient(srv.URL)

	snap, err := client.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Snapshot{"beans": 20, "milk": 10}, snap)
}

func TestClient_TryDeduct(t *testing.T) {
	l := New(Snapshot{"beans": 20, "milk": 10})
	srv := stubInventory(t, l)
	client := NewClient(srv.URL)

	snap, err := client.TryDeduct(context.Background(), []Amount{
		{Ingredient: "beans", Quantity: 1},
		{Ingredient: "milk", Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, Snapshot{"beans": 19, "milk": 8}, snap)
	assert.Equal(t, Snapshot{"beans": 19, "milk": 8}, l.Read())
}

func TestClient_TryDeduct_Insufficient(t *testing.T) {
	l := New(Snapshot{"beans": 0, "milk": 10})
	srv := stubInventory(t, l)
	client := NewClient(srv.URL)

	_, err := client.TryDeduct(context.Background(), []Amount{{Ingredient: "beans", Quantity: 1}})

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "beans", insufficient.Ingredient)
	assert.Equal(t, 1, insufficient.Required)
	assert.Equal(t, 0, insufficient.Available)
	assert.Equal(t, Snapshot{"beans": 0, "milk": 10}, l.Read(), "remote ledger untouched")
}
