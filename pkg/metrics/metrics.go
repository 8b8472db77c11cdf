package metrics

// RequestSecondsBuckets covers hosted model calls, which range from sub-second
// cached answers to cold model loads.
var RequestSecondsBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120}
