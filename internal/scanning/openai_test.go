package scanning

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("OpenAI", func() {
	var (
		server    *ghttp.Server
		provider  *OpenAI
		photo     *Photo
		detection *Detection
		err       error
	)

	respondWithContent := func(content string) http.HandlerFunc {
		return ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}

	BeforeEach(func() {
		server = ghttp.NewServer()
		var newErr error
		provider, newErr = NewOpenAI("test-key", server.URL()+"/", "gpt-4o-mini")
		Expect(newErr).NotTo(HaveOccurred())
		photo = &Photo{Data: []byte("jpeg bytes"), MIMEType: "image/jpeg"}
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		detection, err = provider.DetectItems(context.Background(), photo)
	})

	When("the API returns an item array", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer test-key"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					body, readErr := io.ReadAll(r.Body)
					Expect(readErr).NotTo(HaveOccurred())

					var req openAIChatRequest
					Expect(json.Unmarshal(body, &req)).To(Succeed())
					Expect(req.Model).To(Equal("gpt-4o-mini"))
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[0].Role).To(Equal("system"))
					Expect(string(body)).To(ContainSubstring(`"url":"data:image/jpeg;base64,anBlZyBieXRlcw=="`))
				},
				respondWithContent("```json\n[{\"name\": \"Whole Milk\", \"category\": \"dairy\", \"quantity\": 1, \"unit\": \"gallon\", \"confidence\": 0.9}]\n```"),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse the items", func() {
			Expect(detection.Records).To(HaveLen(1))
			Expect(detection.Records[0].Name).To(Equal("Whole Milk"))
			Expect(detection.Records[0].Unit).To(Equal("gallon"))
		})
	})

	When("the API returns a non-2xx status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusUnauthorized, `{"error": "invalid api key"}`))
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("status 401"))
			Expect(err.Error()).To(ContainSubstring("invalid api key"))
		})
	})

	When("the API returns no choices", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{"choices": []any{}}))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError("no response from openai"))
		})
	})

	When("the response body is not JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, "<html>gateway</html>"))
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("decoding response"))
		})
	})

	When("the model answers with a JSON object", func() {
		BeforeEach(func() {
			server.AppendHandlers(respondWithContent(`{"name": "Milk", "category": "dairy"}`))
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no JSON array found"))
		})
	})

	When("the server is unreachable", func() {
		BeforeEach(func() {
			server.Close()
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("calling openai API"))
		})
	})
})

var _ = Describe("NewOpenAI", func() {
	It("requires an api key", func() {
		_, err := NewOpenAI("", "", "")
		Expect(err).To(MatchError("openai api key is required"))
	})

	It("applies defaults", func() {
		provider, err := NewOpenAI("key", "", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.baseURL).To(Equal("https://api.openai.com"))
		Expect(provider.model).To(Equal("gpt-4o"))
		Expect(provider.Name()).To(Equal("openai"))
	})
})
