package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeSideShift is an in-process stand-in for the SideShift v2 API.
type fakeSideShift struct {
	mu sync.Mutex

	rate       string
	pairErr    string
	createErr  string
	lookupErr  string
	shiftState map[string]string
	settled    map[string]string
	nextShift  int

	pairCalls   int
	createCalls int
	lookupCalls int
	lastUserIP  []string
	lastCreate  map[string]any
	lastSecret  string

	server *httptest.Server
}

func newFakeSideShift(t *testing.T) *fakeSideShift {
	t.Helper()
	f := &fakeSideShift{
		rate:       "50000",
		shiftState: map[string]string{},
		settled:    map[string]string{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSideShift) client() *SideShiftClient {
	return NewSideShiftClient(f.server.URL, "test-secret", "aff-1", f.server.Client())
}

func (f *fakeSideShift) setStatus(shiftID, status, settleAmount string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shiftState[shiftID] = status
	if settleAmount != "" {
		f.settled[shiftID] = settleAmount
	}
}

func (f *fakeSideShift) counts() (pair, create, lookup int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pairCalls, f.createCalls, f.lookupCalls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeSideShift) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastSecret = r.Header.Get("x-sideshift-secret")
	_, hasIP := r.Header["X-User-Ip"]
	if hasIP {
		f.lastUserIP = append(f.lastUserIP, r.Header.Get("x-user-ip"))
	} else {
		f.lastUserIP = append(f.lastUserIP, "")
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/coins":
		writeJSON(w, http.StatusOK, []map[string]any{
			{"coin": "BTC", "networks": []string{"bitcoin"}, "name": "Bitcoin", "hasMemo": false, "fixedOnly": false},
			{"coin": "USDT", "networks": []string{"ethereum", "tron"}, "name": "Tether", "hasMemo": false, "fixedOnly": []string{"tron"}},
		})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/pair/"):
		f.pairCalls++
		if f.pairErr != "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": f.pairErr}})
			return
		}
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/pair/"), "/")
		writeJSON(w, http.StatusOK, map[string]string{
			"min": "0.0001", "max": "2", "rate": f.rate,
			"depositCoin": parts[0], "settleCoin": parts[len(parts)-1],
		})

	case r.Method == http.MethodPost && r.URL.Path == "/shifts/variable":
		f.createCalls++
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lastCreate = body
		if f.createErr != "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": f.createErr}})
			return
		}
		f.nextShift++
		id := fmt.Sprintf("shift-%d", f.nextShift)
		f.shiftState[id] = "waiting"
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":             id,
			"depositCoin":    body["depositCoin"],
			"depositNetwork": body["depositNetwork"],
			"settleCoin":     body["settleCoin"],
			"settleNetwork":  body["settleNetwork"],
			"settleAddress":  body["settleAddress"],
			"depositAddress": fmt.Sprintf("dep-addr-%d", f.nextShift),
			"depositMin":     "0.0001",
			"depositMax":     "2",
			"type":           "variable",
			"status":         "waiting",
		})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/shifts/"):
		f.lookupCalls++
		if f.lookupErr != "" {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": f.lookupErr})
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/shifts/")
		status, ok := f.shiftState[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]string{"message": "Shift not found"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"id":           id,
			"status":       status,
			"settleAmount": f.settled[id],
		})

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}
}
