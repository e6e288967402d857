package dispatcher_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/service-mesh/internal/dispatcher"
)

var _ = Describe("HTTPTransport", func() {
	var (
		transport *dispatcher.HTTPTransport
		server    *httptest.Server
		received  *http.Request
		body      []byte
		status    int
	)

	BeforeEach(func() {
		transport = dispatcher.NewHTTPTransport(time.Second)
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received = r
			body, _ = io.ReadAll(r.Body)
			w.WriteHeader(status)
			w.Write([]byte(`{"pong":true}`))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	Context("GET requests", func() {
		It("encodes data as query parameters", func() {
			res, err := transport.Do(context.Background(), server.URL+"/ping", "GET",
				map[string]string{"q": "hello"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StatusCode).To(Equal(http.StatusOK))
			Expect(received.URL.Query().Get("q")).To(Equal("hello"))
		})

		It("sends no query string for nil data", func() {
			_, err := transport.Do(context.Background(), server.URL+"/ping", "GET", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(received.URL.RawQuery).To(BeEmpty())
		})

		It("rejects non-map query data", func() {
			_, err := transport.Do(context.Background(), server.URL+"/ping", "GET", 42)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("POST requests", func() {
		It("sends data as a JSON body", func() {
			payload := map[string]any{"text": "hello"}
			res, err := transport.Do(context.Background(), server.URL+"/process", "POST", payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StatusCode).To(Equal(http.StatusOK))
			Expect(received.Header.Get("Content-Type")).To(Equal("application/json"))

			var decoded map[string]any
			Expect(json.Unmarshal(body, &decoded)).To(Succeed())
			Expect(decoded).To(HaveKeyWithValue("text", "hello"))
		})

		It("sends an empty body for nil data", func() {
			_, err := transport.Do(context.Background(), server.URL+"/process", "POST", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(BeEmpty())
		})
	})

	Context("error handling", func() {
		It("returns a status error for non-2xx responses", func() {
			status = http.StatusInternalServerError

			_, err := transport.Do(context.Background(), server.URL+"/ping", "GET", nil)
			var statusErr *dispatcher.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusInternalServerError))
		})

		It("rejects unsupported methods", func() {
			_, err := transport.Do(context.Background(), server.URL+"/ping", "TRACE", nil)
			Expect(err).To(MatchError(ContainSubstring("unsupported HTTP method")))
		})

		It("fails when the endpoint is unreachable", func() {
			_, err := transport.Do(context.Background(), "http://127.0.0.1:1/ping", "GET", nil)
			Expect(err).To(HaveOccurred())
		})

		It("honors context cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := transport.Do(ctx, server.URL+"/ping", "GET", nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Response", func() {
		It("decodes the JSON body", func() {
			res, err := transport.Do(context.Background(), server.URL+"/ping", "GET", nil)
			Expect(err).NotTo(HaveOccurred())

			var decoded map[string]bool
			Expect(res.Decode(&decoded)).To(Succeed())
			Expect(decoded).To(HaveKeyWithValue("pong", true))
		})
	})
})
