package scanning

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Gemini", func() {
	Describe("NewGemini", func() {
		It("requires an api key", func() {
			_, err := NewGemini(context.Background(), "", "")
			Expect(err).To(MatchError("gemini api key is required"))
		})
	})

	Describe("geminiResponseText", func() {
		candidate := func(parts ...genai.Part) *genai.GenerateContentResponse {
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
			}
		}

		It("should join the text parts in order", func() {
			text, err := geminiResponseText(candidate(
				genai.Text(`[{"name": "Milk", `),
				genai.Text(`"category": "dairy"}]`),
			))
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(`[{"name": "Milk", "category": "dairy"}]`))

			detection, err := parseItemsJSON(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(detection.Records).To(HaveLen(1))
		})

		It("should skip parts that are not text", func() {
			text, err := geminiResponseText(candidate(
				genai.ImageData("png", []byte("\x89PNG")),
				genai.Text("[]"),
			))
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("[]"))
		})

		It("should use only the first candidate", func() {
			resp := candidate(genai.Text("first"))
			resp.Candidates = append(resp.Candidates, &genai.Candidate{Content: &genai.Content{Parts: []genai.Part{genai.Text("second")}}})
			text, err := geminiResponseText(resp)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("first"))
		})

		It("returns an error when there are no candidates", func() {
			_, err := geminiResponseText(&genai.GenerateContentResponse{})
			Expect(err).To(MatchError("no response from gemini"))
		})

		It("returns an error when the candidate has no content", func() {
			_, err := geminiResponseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
			Expect(err).To(MatchError("no response from gemini"))
		})

		It("returns an error when the content has no parts", func() {
			_, err := geminiResponseText(candidate())
			Expect(err).To(MatchError("no response from gemini"))
		})

		It("returns an error for a nil response", func() {
			_, err := geminiResponseText(nil)
			Expect(err).To(MatchError("no response from gemini"))
		})
	})
})
