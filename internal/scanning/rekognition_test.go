package scanning

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeLabelDetector is a mock implementation of LabelDetector
type fakeLabelDetector struct {
	output    *rekognition.DetectLabelsOutput
	err       error
	lastInput *rekognition.DetectLabelsInput
}

func (f *fakeLabelDetector) DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func label(name string, confidence float32, instances int, parents ...string) types.Label {
	l := types.Label{
		Name:       aws.String(name),
		Confidence: aws.Float32(confidence),
	}
	for i := 0; i < instances; i++ {
		l.Instances = append(l.Instances, types.Instance{Confidence: aws.Float32(confidence)})
	}
	for _, p := range parents {
		l.Parents = append(l.Parents, types.Parent{Name: aws.String(p)})
	}
	return l
}

var _ = Describe("Rekognition", func() {
	var (
		detector  *fakeLabelDetector
		detection *Detection
		err       error
	)

	BeforeEach(func() {
		detector = &fakeLabelDetector{output: &rekognition.DetectLabelsOutput{}}
	})

	JustBeforeEach(func() {
		provider := NewRekognitionWithClient(detector)
		detection, err = provider.DetectItems(context.Background(), &Photo{Data: []byte("jpeg"), MIMEType: "image/jpeg"})
	})

	When("labels include groceries and their parents", func() {
		BeforeEach(func() {
			detector.output.Labels = []types.Label{
				label("Food", 99, 0),
				label("Fruit", 98, 0, "Food", "Plant"),
				label("Banana", 97, 3, "Fruit", "Food", "Plant"),
				label("Milk", 90, 0, "Beverage", "Dairy"),
				label("Table", 85, 0, "Furniture"),
			}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should send the photo bytes", func() {
			Expect(detector.lastInput.Image.Bytes).To(Equal([]byte("jpeg")))
		})

		It("should keep only the specific grocery labels", func() {
			Expect(detection.Records).To(HaveLen(2))
			Expect(detection.Records[0].Name).To(Equal("Banana"))
			Expect(detection.Records[1].Name).To(Equal("Milk"))
		})

		It("should classify the labels", func() {
			Expect(detection.Records[0].Category).To(Equal("produce"))
			Expect(detection.Records[1].Category).To(Equal("dairy"))
		})

		It("should count instances as quantity", func() {
			Expect(*detection.Records[0].Quantity).To(Equal(3.0))
			Expect(detection.Records[1].Quantity).To(BeNil())
		})

		It("should scale confidence to [0,1]", func() {
			Expect(*detection.Records[0].Confidence).To(BeNumerically("~", 0.97, 0.0001))
		})

		It("should reject labels that are not groceries", func() {
			Expect(detection.Rejected).To(ContainElement(Rejection{Index: 4, Reason: "not a grocery item"}))
		})
	})

	When("a label is classified through its parent", func() {
		BeforeEach(func() {
			detector.output.Labels = []types.Label{
				label("Gouda", 88, 0, "Cheese", "Food"),
			}
		})

		It("should use the parent's category", func() {
			Expect(detection.Records).To(HaveLen(1))
			Expect(detection.Records[0].Category).To(Equal("dairy"))
		})
	})

	When("the API call fails", func() {
		BeforeEach(func() {
			detector.err = errors.New("access denied")
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("detecting labels: access denied")))
		})
	})
})
