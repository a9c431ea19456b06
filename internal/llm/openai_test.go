package llm_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/internal/llm"
)

var _ = Describe("OpenAIGateway voice calls", func() {
	var (
		server  *httptest.Server
		handle  http.HandlerFunc
		gateway *llm.OpenAIGateway
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handle(w, r)
		}))
		DeferCleanup(server.Close)
		gateway = llm.NewOpenAIGateway(llm.OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/"})
	})

	Describe("Transcribe", func() {
		It("uploads the audio as multipart with model and language", func() {
			handle = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.URL.Path).To(Equal("/audio/transcriptions"))
				Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())
				Expect(r.FormValue("model")).To(Equal("gpt-4o-transcribe"))
				Expect(r.FormValue("language")).To(Equal("it"))

				file, header, err := r.FormFile("file")
				Expect(err).NotTo(HaveOccurred())
				defer file.Close()
				Expect(header.Filename).To(Equal("note.webm"))
				data, _ := io.ReadAll(file)
				Expect(string(data)).To(Equal("voice-bytes"))

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"text":"ciao a tutti"}`))
			}

			text, err := gateway.Transcribe(ctx, llm.TranscriptionRequest{
				Name:     "note.webm",
				MimeType: "audio/webm",
				Data:     []byte("voice-bytes"),
				Model:    "gpt-4o-transcribe",
				Language: "it",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("ciao a tutti"))
		})

		It("wraps provider failures", func() {
			handle = func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"message":"unsupported format"}}`))
			}

			_, err := gateway.Transcribe(ctx, llm.TranscriptionRequest{Name: "a.bin", Data: []byte("x"), Model: "gpt-4o-transcribe"})
			Expect(err).To(MatchError(ContainSubstring("transcribe audio")))
		})
	})

	Describe("CreateRealtimeSession", func() {
		var body map[string]any

		BeforeEach(func() {
			body = nil
		})

		capture := func(response string) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.URL.Path).To(Equal("/realtime/client_secrets"))
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(response))
			}
		}

		req := llm.RealtimeSessionRequest{
			Model:        "gpt-realtime-mini",
			Voice:        "verse",
			Instructions: "be kind",
			TTL:          10 * time.Minute,
		}

		It("sends model, voice, instructions and expiry", func() {
			handle = capture(`{"value":"ek_1","expires_at":1700000600,"session":{"id":"sess_1"}}`)

			session, err := gateway.CreateRealtimeSession(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(*session).To(Equal(llm.RealtimeSession{ClientSecret: "ek_1", SessionID: "sess_1", ExpiresAt: 1700000600}))

			Expect(body["expires_after"]).To(HaveKeyWithValue("seconds", BeNumerically("==", 600)))
			Expect(body["session"]).To(HaveKeyWithValue("model", "gpt-realtime-mini"))
			Expect(body["session"]).To(HaveKeyWithValue("instructions", "be kind"))
		})

		It("accepts the nested client_secret shape", func() {
			handle = capture(`{"id":"sess_2","client_secret":{"value":"ek_2","expires_at":1700000900}}`)

			session, err := gateway.CreateRealtimeSession(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(*session).To(Equal(llm.RealtimeSession{ClientSecret: "ek_2", SessionID: "sess_2", ExpiresAt: 1700000900}))
		})

		It("rejects a response without a secret", func() {
			handle = capture(`{"id":"sess_3"}`)

			_, err := gateway.CreateRealtimeSession(ctx, req)
			Expect(err).To(MatchError(ContainSubstring("empty client secret")))
		})
	})
})
