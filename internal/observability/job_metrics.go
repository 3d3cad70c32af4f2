package observability

import "time"

// ObserveJob records duration and outcome for one executed job.
// result is one of done|retry|failed.
func (p *Prom) ObserveJob(jobType string, start time.Time, result string) {
	secs := time.Since(start).Seconds()

	p.JobDuration.WithLabelValues(jobType, result).Observe(secs)
	p.JobResults.WithLabelValues(jobType, result).Inc()
}

func (p *Prom) JobStarted() {
	p.JobsInFlight.Inc()
}

func (p *Prom) JobFinished() {
	p.JobsInFlight.Dec()
}
