package scanning

func ptr(f float64) *float64 {
	return &f
}

// sampleRecords are returned when no provider could analyze the photo
var sampleRecords = []ItemRecord{
	{Name: "Bananas", Category: "produce", Quantity: ptr(6), Unit: "piece", Confidence: ptr(0.95)},
	{Name: "Whole Milk", Category: "dairy", Quantity: ptr(1), Unit: "gallon", Confidence: ptr(0.92)},
	{Name: "Chicken Breast", Category: "meat", Quantity: ptr(2), Unit: "lb", Confidence: ptr(0.88)},
	{Name: "Whole Wheat Bread", Category: "grain", Quantity: ptr(1), Unit: "loaf", Confidence: ptr(0.9)},
}
