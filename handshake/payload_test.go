package handshake_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Hyphaeic/radixrunner-wasm/handshake"
)

var _ = Describe("HTTPSource", func() {
	var server *httptest.Server

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/small.wasm":
					_, _ = w.Write(make([]byte, 64))
				case "/large.wasm":
					_, _ = w.Write(make([]byte, 4096))
				default:
					http.NotFound(w, r)
				}
			}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("should download a payload within the limit", func() {
		src := handshake.HTTPSource{URL: server.URL + "/small.wasm", MaxBytes: 64}

		data, err := src.Fetch(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(HaveLen(64))
	})

	It("should refuse a payload over the limit", func() {
		src := handshake.HTTPSource{URL: server.URL + "/large.wasm", MaxBytes: 1024}

		_, err := src.Fetch(context.Background())

		Expect(err).To(MatchError(ContainSubstring("larger than 1024 bytes")))
	})

	It("should fail on an error status", func() {
		src := handshake.HTTPSource{URL: server.URL + "/missing.wasm"}

		_, err := src.Fetch(context.Background())

		Expect(err).To(MatchError(ContainSubstring("404")))
	})
})
