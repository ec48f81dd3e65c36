package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"cloak/internal/domain"
)

type memoryStore struct {
	mu      sync.RWMutex
	bundles map[string]domain.PreKeyBundle
	queues  map[string][]domain.EncryptedEnvelope
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		bundles: make(map[string]domain.PreKeyBundle),
		queues:  make(map[string][]domain.EncryptedEnvelope),
	}
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	ms := newMemoryStore()

	http.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var b domain.PreKeyBundle
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		ms.mu.Lock()
		ms.bundles[b.Identity.String()] = b
		ms.mu.Unlock()
		fmt.Println("Received /register bundle for", b.Identity)
		w.WriteHeader(200)
	})

	http.HandleFunc("/prekey/", func(w http.ResponseWriter, r *http.Request) {
		identity := r.URL.Path[len("/prekey/"):]
		ms.mu.RLock()
		b, ok := ms.bundles[identity]
		ms.mu.RUnlock()
		if !ok {
			http.Error(w, "not found", 404)
			return
		}
		_ = json.NewEncoder(w).Encode(b)
	})

	// POST /msg/{user} enqueues; GET /msg/{user}?limit=N peeks;
	// POST /msg/{user}/ack drops the first N.
	http.HandleFunc("/msg/", func(w http.ResponseWriter, r *http.Request) {
		rest := r.URL.Path[len("/msg/"):]
		if user, ok := strings.CutSuffix(rest, "/ack"); ok && r.Method == http.MethodPost {
			handleAck(ms, w, r, user)
			return
		}
		switch r.Method {
		case http.MethodPost:
			handleEnqueue(ms, w, r, rest)
		case http.MethodGet:
			handleFetch(ms, w, r, rest)
		default:
			http.Error(w, "method not allowed", 405)
		}
	})

	log.Println("relay listening on", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

func handleEnqueue(ms *memoryStore, w http.ResponseWriter, r *http.Request, user string) {
	defer r.Body.Close()
	var env domain.EncryptedEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if env.Timestamp == 0 {
		env.Timestamp = time.Now().Unix()
	}
	ms.mu.Lock()
	ms.queues[user] = append(ms.queues[user], env)
	n := len(ms.queues[user])
	ms.mu.Unlock()
	log.Printf("queued envelope for %s (queue depth %d)", user, n)
	w.WriteHeader(200)
}

func handleFetch(ms *memoryStore, w http.ResponseWriter, r *http.Request, user string) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "bad limit", 400)
			return
		}
		limit = n
	}
	ms.mu.RLock()
	q := ms.queues[user]
	if limit > 0 && limit < len(q) {
		q = q[:limit]
	}
	out := make([]domain.EncryptedEnvelope, len(q))
	copy(out, q)
	ms.mu.RUnlock()
	_ = json.NewEncoder(w).Encode(out)
}

func handleAck(ms *memoryStore, w http.ResponseWriter, r *http.Request, user string) {
	defer r.Body.Close()
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	ms.mu.Lock()
	q := ms.queues[user]
	if body.Count >= len(q) {
		delete(ms.queues, user)
	} else if body.Count > 0 {
		ms.queues[user] = q[body.Count:]
	}
	ms.mu.Unlock()
	w.WriteHeader(200)
}
