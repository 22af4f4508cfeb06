package classifier

// Metrics provides statistics about the classifier's work so far
type Metrics struct {
	// Classified is the number of results the routine produced a classification for
	Classified int

	// Skipped is the number of results left alone because they already held a classification
	Skipped int

	// VectorFetches is the number of bulk vector fetches issued
	VectorFetches int

	// SkipRate is the percentage of results served without running the routine
	SkipRate float32
}

// GetMetrics returns current classification metrics
func (c *Classifier) GetMetrics() Metrics {
	c.metricsLock.RLock()
	defer c.metricsLock.RUnlock()

	m := c.metrics
	if total := m.Classified + m.Skipped; total > 0 {
		m.SkipRate = float32(m.Skipped) / float32(total) * 100
	}
	return m
}

// recordClassified records a result classified by the routine
func (c *Classifier) recordClassified() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.Classified++
}

// recordSkipped records a result that already held a classification
func (c *Classifier) recordSkipped() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.Skipped++
}

// recordFetch records a bulk vector fetch
func (c *Classifier) recordFetch() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.VectorFetches++
}
