package scanning

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/grocery-tracker/internal/grocery"
)

// fakeProvider is a mock implementation of Provider
type fakeProvider struct {
	name      string
	detection *Detection
	err       error
	panicWith any
	calls     int
	lastPhoto *Photo
	closeErr  error
}

func (f *fakeProvider) Name() string {
	return f.name
}

func (f *fakeProvider) DetectItems(ctx context.Context, photo *Photo) (*Detection, error) {
	f.calls++
	f.lastPhoto = photo
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.detection, nil
}

func (f *fakeProvider) Close() error {
	return f.closeErr
}

// sequenceIDGenerator hands out id-1, id-2, ...
type sequenceIDGenerator struct {
	next int
}

func (s *sequenceIDGenerator) Generate() string {
	s.next++
	return fmt.Sprintf("id-%d", s.next)
}

// mockTimeSource is a mock implementation of TimeSource
type mockTimeSource struct {
	now time.Time
}

func (m *mockTimeSource) Now() time.Time {
	return m.now
}

var _ = Describe("Gateway", func() {
	var (
		primary       *fakeProvider
		secondary     *fakeProvider
		providers     []Provider
		minConfidence float64
		photoBase64   string
		today         time.Time
		result        *grocery.DetectionResult
	)

	BeforeEach(func() {
		primary = &fakeProvider{
			name: "primary",
			detection: &Detection{Records: []ItemRecord{
				{Name: "Green Apples", Category: "produce", Quantity: ptr(4), Unit: "piece", Confidence: ptr(0.9)},
			}},
		}
		secondary = &fakeProvider{
			name: "secondary",
			detection: &Detection{Records: []ItemRecord{
				{Name: "Cheddar", Category: "dairy", Quantity: ptr(1), Unit: "block", Confidence: ptr(0.8)},
			}},
		}
		providers = []Provider{primary, secondary}
		minConfidence = 0
		photoBase64 = base64.StdEncoding.EncodeToString(encodeTestJPEG(16, 16))
		today = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	})

	JustBeforeEach(func() {
		gateway := NewGatewayWithDeps(providers, &sequenceIDGenerator{}, &mockTimeSource{now: today}, minConfidence)
		result = gateway.Analyze(context.Background(), photoBase64)
	})

	When("no provider is configured", func() {
		BeforeEach(func() {
			providers = nil
		})

		It("should succeed with the mock method", func() {
			Expect(result.Success).To(BeTrue())
			Expect(result.Method).To(Equal(grocery.MethodMock))
		})

		It("should return the four sample items", func() {
			Expect(result.Items).To(HaveLen(4))
			Expect(result.Items[0].Name).To(Equal("Bananas"))
			Expect(result.Items[1].Name).To(Equal("Whole Milk"))
			Expect(result.Items[2].Name).To(Equal("Chicken Breast"))
			Expect(result.Items[3].Name).To(Equal("Whole Wheat Bread"))
		})

		It("should explain why", func() {
			Expect(result.Message).To(ContainSubstring("No vision provider"))
		})

		It("should normalize the sample items", func() {
			Expect(result.Items[2].Category).To(Equal(grocery.CategoryMeat))
			Expect(result.Items[2].EstimatedExpiry).To(Equal(time.Date(2024, 1, 18, 0, 0, 0, 0, time.UTC)))
			Expect(result.Items[0].ID).To(Equal("id-1"))
		})
	})

	When("the primary provider succeeds", func() {
		It("should report the primary method", func() {
			Expect(result.Success).To(BeTrue())
			Expect(result.Method).To(Equal("primary"))
		})

		It("should return the primary's items", func() {
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Name).To(Equal("Green Apples"))
		})

		It("should not call the secondary provider", func() {
			Expect(secondary.calls).To(BeZero())
		})

		It("should send the prepared photo", func() {
			Expect(primary.lastPhoto).NotTo(BeNil())
			Expect(primary.lastPhoto.MIMEType).To(Equal("image/jpeg"))
		})

		It("should have no message", func() {
			Expect(result.Message).To(BeEmpty())
		})
	})

	When("the primary provider fails", func() {
		BeforeEach(func() {
			primary.err = errors.New("connection refused")
		})

		It("should fall back to the secondary provider", func() {
			Expect(result.Method).To(Equal("secondary"))
			Expect(result.Items[0].Name).To(Equal("Cheddar"))
		})

		It("should record both attempts", func() {
			Expect(result.Attempts).To(Equal([]grocery.Attempt{
				{Provider: "primary", Error: "connection refused"},
				{Provider: "secondary", Items: 1},
			}))
		})
	})

	When("the primary provider returns no usable items", func() {
		BeforeEach(func() {
			primary.detection = &Detection{Rejected: []Rejection{{Index: 0, Reason: "missing category"}}}
		})

		It("should fall back to the secondary provider", func() {
			Expect(result.Method).To(Equal("secondary"))
		})

		It("should record the rejected entries", func() {
			Expect(result.Attempts[0].Rejected).To(Equal(1))
			Expect(result.Attempts[0].Error).To(Equal("no valid items in response"))
		})
	})

	When("the primary provider panics", func() {
		BeforeEach(func() {
			primary.panicWith = "boom"
		})

		It("should fall back to the secondary provider", func() {
			Expect(result.Method).To(Equal("secondary"))
			Expect(result.Attempts[0].Error).To(ContainSubstring("boom"))
		})
	})

	When("every provider fails", func() {
		BeforeEach(func() {
			primary.err = errors.New("timeout")
			secondary.err = errors.New("quota exceeded")
		})

		It("should still succeed with the sample items", func() {
			Expect(result.Success).To(BeTrue())
			Expect(result.Method).To(Equal(grocery.MethodMock))
			Expect(result.Items).To(HaveLen(4))
		})

		It("should explain why", func() {
			Expect(result.Message).To(ContainSubstring("All vision providers failed"))
		})

		It("should record every attempt", func() {
			Expect(result.Attempts).To(HaveLen(2))
		})
	})

	When("the photo is not valid base64", func() {
		BeforeEach(func() {
			photoBase64 = "%%% not a photo %%%"
		})

		It("should not call any provider", func() {
			Expect(primary.calls).To(BeZero())
			Expect(secondary.calls).To(BeZero())
		})

		It("should return the sample items", func() {
			Expect(result.Method).To(Equal(grocery.MethodMock))
			Expect(result.Message).To(ContainSubstring("could not be decoded"))
		})
	})

	When("the photo is not an image format we can convert", func() {
		BeforeEach(func() {
			photoBase64 = base64.StdEncoding.EncodeToString([]byte("raw camera bytes"))
		})

		It("should forward the bytes unchanged", func() {
			Expect(string(primary.lastPhoto.Data)).To(Equal("raw camera bytes"))
			Expect(result.Method).To(Equal("primary"))
		})
	})

	When("a provider omits optional fields", func() {
		BeforeEach(func() {
			primary.detection = &Detection{Records: []ItemRecord{{Name: "Eggs", Category: "dairy"}}}
		})

		It("should fill the defaults", func() {
			item := result.Items[0]
			Expect(item.Quantity).To(Equal(1.0))
			Expect(item.Unit).To(Equal("piece"))
			Expect(item.Confidence).To(Equal(0.7))
		})

		It("should estimate expiry from the category", func() {
			Expect(result.Items[0].EstimatedExpiry).To(Equal(time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC)))
		})
	})

	When("a provider returns an unrecognized category", func() {
		BeforeEach(func() {
			primary.detection = &Detection{Records: []ItemRecord{{Name: "Croissant", Category: "bakery"}}}
		})

		It("should coerce it to other with a 30 day expiry", func() {
			item := result.Items[0]
			Expect(item.Category).To(Equal(grocery.CategoryOther))
			Expect(item.EstimatedExpiry).To(Equal(time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)))
		})
	})

	When("a provider returns an out of range confidence", func() {
		BeforeEach(func() {
			primary.detection = &Detection{Records: []ItemRecord{
				{Name: "Salsa", Category: "condiment", Confidence: ptr(1.7)},
				{Name: "Soda", Category: "beverage", Confidence: ptr(-0.2)},
			}}
		})

		It("should clamp it", func() {
			Expect(result.Items[0].Confidence).To(Equal(1.0))
			Expect(result.Items[1].Confidence).To(Equal(0.0))
		})
	})

	When("several items are detected", func() {
		BeforeEach(func() {
			primary.detection = &Detection{Records: []ItemRecord{
				{Name: "Apples", Category: "produce"},
				{Name: "Apples", Category: "produce"},
				{Name: "Rice", Category: "grain"},
			}}
		})

		It("should give every item a distinct id", func() {
			ids := map[string]bool{}
			for _, item := range result.Items {
				ids[item.ID] = true
			}
			Expect(ids).To(HaveLen(3))
		})
	})

	When("a minimum confidence is configured", func() {
		BeforeEach(func() {
			minConfidence = 0.5
			primary.detection = &Detection{Records: []ItemRecord{
				{Name: "Apples", Category: "produce", Confidence: ptr(0.9)},
				{Name: "Blurry Thing", Category: "other", Confidence: ptr(0.2)},
			}}
		})

		It("should drop low confidence items", func() {
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Name).To(Equal("Apples"))
		})
	})

	When("the minimum confidence filters out every item", func() {
		BeforeEach(func() {
			minConfidence = 0.95
		})

		It("should fall back to the sample items", func() {
			Expect(result.Method).To(Equal(grocery.MethodMock))
			Expect(result.Attempts).To(HaveLen(2))
		})
	})

	When("the primary provider returns malformed JSON", func() {
		var server *ghttp.Server

		BeforeEach(func() {
			server = ghttp.NewServer()
			server.AppendHandlers(
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"choices": []map[string]any{
						{"message": map[string]any{"content": "[{\"name\": \"Milk\", "}},
					},
				}),
			)
			openAI, err := NewOpenAI("test-key", server.URL(), "")
			Expect(err).NotTo(HaveOccurred())
			providers = []Provider{openAI, secondary}
		})

		AfterEach(func() {
			server.Close()
		})

		It("should attempt the secondary provider", func() {
			Expect(secondary.calls).To(Equal(1))
			Expect(result.Method).To(Equal("secondary"))
		})

		It("should record the parse failure", func() {
			Expect(result.Attempts[0].Provider).To(Equal("openai"))
			Expect(result.Attempts[0].Error).To(ContainSubstring("parsing grocery items"))
		})
	})
})

var _ = Describe("Gateway.Providers", func() {
	It("lists provider names in order", func() {
		gateway := NewGateway([]Provider{&fakeProvider{name: "a"}, &fakeProvider{name: "b"}}, 0)
		Expect(gateway.Providers()).To(Equal([]string{"a", "b"}))
	})
})

var _ = Describe("Gateway.Close", func() {
	It("returns the first close error", func() {
		gateway := NewGateway([]Provider{
			&fakeProvider{name: "a"},
			&fakeProvider{name: "b", closeErr: errors.New("stuck")},
		}, 0)
		Expect(gateway.Close()).To(MatchError(ContainSubstring("closing b: stuck")))
	})
})

var _ = Describe("defaultIDGenerator", func() {
	It("generates unique ids", func() {
		gen := &defaultIDGenerator{}
		ids := map[string]bool{}
		for i := 0; i < 100; i++ {
			ids[gen.Generate()] = true
		}
		Expect(ids).To(HaveLen(100))
	})
})
