package strandhttp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/strand/strand-go/src/strand"
	"github.com/strand/strand-go/src/strandhttp"
)

// server is a scripted HTTP backend for the specs.
type server struct {
	mutex    sync.Mutex
	status   int
	body     string
	requests []*http.Request
	bodies   []map[string]any
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	s.requests = append(s.requests, r)

	var payload map[string]any
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&payload)
	}
	s.bodies = append(s.bodies, payload)

	status := s.status
	body := s.body
	s.mutex.Unlock()

	if status == 0 {
		status = http.StatusOK
	}

	w.WriteHeader(status)
	w.Write([]byte(body))
}

func (s *server) lastRequest() *http.Request {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.requests[len(s.requests)-1]
}

func (s *server) lastBody() map[string]any {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.bodies[len(s.bodies)-1]
}

var _ = Describe("Transport", func() {
	var (
		backend *server
		ts      *httptest.Server
		subject *strandhttp.Transport
	)

	BeforeEach(func() {
		backend = &server{}
		ts = httptest.NewServer(backend)

		var err error
		subject, err = strandhttp.New(ts.URL)
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		subject.Close()
		ts.Close()
	})

	Describe("New", func() {
		It("rejects an empty base URL", func() {
			_, err := strandhttp.New("  ")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Execute", func() {
		It("POSTs the operation to the kind-specific path", func() {
			backend.body = `{"status":"success","value":[]}`

			req := &strand.Request{
				Kind: strand.OpQuery,
				Name: "todos.list",
				Args: map[string]any{"done": true},
			}

			res, err := subject.Execute(context.Background(), req)

			Expect(err).ShouldNot(HaveOccurred())
			Expect(res.Status).To(Equal(strand.StatusSuccess))

			httpReq := backend.lastRequest()
			Expect(httpReq.Method).To(Equal(http.MethodPost))
			Expect(httpReq.URL.Path).To(Equal("/sync/query"))

			body := backend.lastBody()
			Expect(body["name"]).To(Equal("todos.list"))
			Expect(body["args"]).To(Equal(map[string]any{"done": true}))
		})

		It("routes mutations to their own path", func() {
			backend.body = `{"status":"success","value":true}`

			_, err := subject.Execute(context.Background(), &strand.Request{
				Kind: strand.OpMutation,
				Name: "todos.add",
			})

			Expect(err).ShouldNot(HaveOccurred())
			Expect(backend.lastRequest().URL.Path).To(Equal("/sync/mutation"))
		})

		It("carries the snapshot cursor in the request body", func() {
			backend.body = `{"status":"success","value":[]}`

			_, err := subject.Execute(context.Background(), &strand.Request{
				Kind:   strand.OpQuery,
				Name:   "todos.list",
				Cursor: "ts-42",
			})

			Expect(err).ShouldNot(HaveOccurred())
			Expect(backend.lastBody()["ts"]).To(Equal("ts-42"))
		})

		It("parses an error envelope delivered with HTTP 422", func() {
			backend.status = http.StatusUnprocessableEntity
			backend.body = `{"status":"error","errorMessage":"validation failed"}`

			res, err := subject.Execute(context.Background(), &strand.Request{
				Kind: strand.OpMutation,
				Name: "todos.add",
			})

			Expect(err).ShouldNot(HaveOccurred())
			Expect(res.Err()).To(MatchError("validation failed"))
		})

		It("treats other non-2xx statuses as transport errors", func() {
			backend.status = http.StatusBadGateway
			backend.body = "upstream down"

			_, err := subject.Execute(context.Background(), &strand.Request{
				Kind: strand.OpQuery,
				Name: "todos.list",
			})

			var terr *strand.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(terr.StatusCode).To(Equal(http.StatusBadGateway))
			Expect(terr.Retryable()).To(BeTrue())
		})

		It("wraps network failures as retryable transport errors", func() {
			ts.Close()

			_, err := subject.Execute(context.Background(), &strand.Request{
				Kind: strand.OpQuery,
				Name: "todos.list",
			})

			var terr *strand.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(terr.Retryable()).To(BeTrue())
		})

		It("sends configured default headers", func() {
			backend.body = `{"status":"success","value":[]}`

			t, err := strandhttp.New(
				ts.URL,
				strandhttp.WithHeader("Authorization", "Bearer token"),
			)
			Expect(err).ShouldNot(HaveOccurred())
			defer t.Close()

			_, err = t.Execute(context.Background(), &strand.Request{
				Kind: strand.OpQuery,
				Name: "todos.list",
			})
			Expect(err).ShouldNot(HaveOccurred())

			Expect(backend.lastRequest().Header.Get("Authorization")).To(Equal("Bearer token"))
		})
	})

	Describe("SnapshotCursor", func() {
		It("GETs the timestamp endpoint", func() {
			backend.body = `{"ts":"ts-42"}`

			cursor, err := subject.SnapshotCursor(context.Background())

			Expect(err).ShouldNot(HaveOccurred())
			Expect(cursor).To(Equal("ts-42"))

			httpReq := backend.lastRequest()
			Expect(httpReq.Method).To(Equal(http.MethodGet))
			Expect(httpReq.URL.Path).To(Equal("/sync/ts"))
		})

		It("rejects a response without a cursor", func() {
			backend.body = `{}`

			_, err := subject.SnapshotCursor(context.Background())

			var verr *strand.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
		})

		It("reports HTTP failures as transport errors", func() {
			backend.status = http.StatusServiceUnavailable

			_, err := subject.SnapshotCursor(context.Background())

			var terr *strand.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(terr.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("ConnectionStates", func() {
		It("emits Connected after the first successful exchange", func() {
			backend.body = `{"status":"success","value":[]}`

			_, err := subject.Execute(context.Background(), &strand.Request{
				Kind: strand.OpQuery,
				Name: "todos.list",
			})
			Expect(err).ShouldNot(HaveOccurred())

			Eventually(subject.ConnectionStates()).Should(Receive(Equal(strand.Connected)))
		})

		It("emits Disconnected after a network failure", func() {
			backend.body = `{"status":"success","value":[]}`

			_, err := subject.Execute(context.Background(), &strand.Request{
				Kind: strand.OpQuery,
				Name: "todos.list",
			})
			Expect(err).ShouldNot(HaveOccurred())

			ts.Close()

			subject.Execute(context.Background(), &strand.Request{
				Kind: strand.OpQuery,
				Name: "todos.list",
			})

			states := subject.ConnectionStates()
			Eventually(states).Should(Receive(Equal(strand.Connected)))
			Eventually(states).Should(Receive(Equal(strand.Disconnected)))
		})
	})
})
