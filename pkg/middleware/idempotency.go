package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	apperrors "dogfordate/pkg/errors"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"
)

// ReplayStore remembers the response to a write so a retried message send or
// booking request is answered without running the handler again.
type ReplayStore interface {
	// Claim reserves key for one in-flight request. It returns the stored
	// response when the key already completed, or claimed=false while another
	// request holds the key.
	Claim(key string) (stored *StoredResponse, claimed bool)
	// Settle records resp for key and releases the claim. A nil resp releases
	// the claim without storing anything.
	Settle(key string, resp *StoredResponse)
	Close()
}

type StoredResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	StoredAt   time.Time
}

// MemoryReplayStore keeps responses for ttl in process memory.
type MemoryReplayStore struct {
	mu        sync.Mutex
	responses map[string]*StoredResponse
	inFlight  map[string]struct{}
	ttl       time.Duration
	now       func() time.Time
	closeOnce sync.Once
	done      chan struct{}
}

func NewMemoryReplayStore(ttl time.Duration) *MemoryReplayStore {
	s := &MemoryReplayStore{
		responses: make(map[string]*StoredResponse),
		inFlight:  make(map[string]struct{}),
		ttl:       ttl,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	go s.sweepEvery(min(ttl, time.Hour))
	return s
}

func (s *MemoryReplayStore) Claim(key string) (*StoredResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if resp, ok := s.responses[key]; ok && !s.expired(resp) {
		return resp, false
	}
	if _, busy := s.inFlight[key]; busy {
		return nil, false
	}
	s.inFlight[key] = struct{}{}
	return nil, true
}

func (s *MemoryReplayStore) Settle(key string, resp *StoredResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, key)
	if resp == nil {
		return
	}
	resp.StoredAt = s.now()
	s.responses[key] = resp
}

func (s *MemoryReplayStore) expired(resp *StoredResponse) bool {
	return s.now().Sub(resp.StoredAt) > s.ttl
}

func (s *MemoryReplayStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, resp := range s.responses {
		if s.expired(resp) {
			delete(s.responses, key)
		}
	}
}

func (s *MemoryReplayStore) sweepEvery(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryReplayStore) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// recordingWriter tees the body so a 2xx response can be stored.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency answers a repeated Idempotency-Key with the first 2xx response.
// Keys are scoped to the account, method and path. A second request with a
// key that is still being processed gets 409 instead of running twice.
func Idempotency(store ReplayStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(IdempotencyHeader)
			if clientKey == "" || !isWriteMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			key := replayKey(r, clientKey)
			stored, claimed := store.Claim(key)
			if stored != nil {
				writeStored(w, stored)
				return
			}
			if !claimed {
				apperrors.WriteError(w, apperrors.Conflict("A request with this Idempotency-Key is still in progress"))
				return
			}

			rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			var resp *StoredResponse
			defer func() { store.Settle(key, resp) }()

			next.ServeHTTP(rw, r)
			if rw.status >= 200 && rw.status < 300 {
				resp = &StoredResponse{
					StatusCode: rw.status,
					Headers:    w.Header().Clone(),
					Body:       bytes.Clone(rw.body.Bytes()),
				}
			}
		})
	}
}

func replayKey(r *http.Request, clientKey string) string {
	return accountID(r) + "|" + r.Method + "|" + r.URL.Path + "|" + clientKey
}

func writeStored(w http.ResponseWriter, resp *StoredResponse) {
	for name, values := range resp.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
