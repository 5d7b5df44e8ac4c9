package imaging

// Options configures the adaptive processor
type Options struct {
	// Longer edge limit; images are never upscaled
	MaxDimension int
	// Mean sampled brightness below which enhancement runs
	BrightnessThreshold float64
	// Byte stride across the interleaved RGBA buffer when sampling
	SampleStride int
	JPEGQuality  int

	Contrast   float64
	Brightness float64
	Saturation float64

	// Parallel bands for the sharpening pass, 0 means NumCPU
	MaxWorkers int
}

// DefaultOptions returns the standard low-light pipeline settings
func DefaultOptions() Options {
	return Options{
		MaxDimension:        1080,
		BrightnessThreshold: 70,
		SampleStride:        40,
		JPEGQuality:         90,
		Contrast:            1.4,
		Brightness:          1.3,
		Saturation:          1.1,
	}
}

// WithLimits overrides the size, threshold and quality settings, keeping
// defaults for any value that is not positive
func (o Options) WithLimits(maxDimension int, threshold float64, quality int) Options {
	if maxDimension > 0 {
		o.MaxDimension = maxDimension
	}
	if threshold > 0 {
		o.BrightnessThreshold = threshold
	}
	if quality > 0 {
		o.JPEGQuality = quality
	}
	return o
}

// normalized replaces unset fields with their defaults
func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.MaxDimension <= 0 {
		o.MaxDimension = d.MaxDimension
	}
	if o.BrightnessThreshold <= 0 {
		o.BrightnessThreshold = d.BrightnessThreshold
	}
	if o.SampleStride <= 0 {
		o.SampleStride = d.SampleStride
	}
	if o.JPEGQuality <= 0 {
		o.JPEGQuality = d.JPEGQuality
	}
	if o.Contrast <= 0 {
		o.Contrast = d.Contrast
	}
	if o.Brightness <= 0 {
		o.Brightness = d.Brightness
	}
	if o.Saturation <= 0 {
		o.Saturation = d.Saturation
	}
	return o
}
