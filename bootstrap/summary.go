package bootstrap

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kbukum/gfnkit/logger"
)

// ComponentStatus holds the checked status of a component.
type ComponentStatus struct {
	Name    string
	Status  string
	Healthy bool
}

// InfrastructureInfo describes one wired backend.
type InfrastructureInfo struct {
	Name    string
	Details string
	Healthy bool
}

// Summary tracks and displays what the application wired at startup.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	infrastructure  []InfrastructureInfo
	components      []ComponentStatus
	pipelineDirs    []string
	out             io.Writer
}

// NewSummary creates a summary that writes to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
		out:         os.Stdout,
	}
}

// SetOutput redirects Display.
func (s *Summary) SetOutput(w io.Writer) {
	s.out = w
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackInfrastructure records a wired backend.
func (s *Summary) TrackInfrastructure(name, details string, healthy bool) {
	s.infrastructure = append(s.infrastructure, InfrastructureInfo{Name: name, Details: details, Healthy: healthy})
}

// TrackComponent records a component's health check result.
func (s *Summary) TrackComponent(name, status string, healthy bool) {
	s.components = append(s.components, ComponentStatus{Name: name, Status: status, Healthy: healthy})
}

// TrackPipelineDirs records where pipeline manifests are searched.
func (s *Summary) TrackPipelineDirs(dirs []string) {
	s.pipelineDirs = append(s.pipelineDirs, dirs...)
}

// Display prints the summary and logs a one-line digest.
func (s *Summary) Display(log *logger.Logger) {
	w := s.out
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if len(s.infrastructure) > 0 {
		fmt.Fprintf(w, "📊 Infrastructure\n")
		for i, inf := range s.infrastructure {
			fmt.Fprintf(w, "   %s %s %s: %s\n", branch(i, len(s.infrastructure)), icon(inf.Healthy), inf.Name, inf.Details)
		}
		fmt.Fprintf(w, "\n")
	}

	healthy := 0
	if len(s.components) > 0 {
		fmt.Fprintf(w, "🏥 Health Check\n")
		for i, c := range s.components {
			fmt.Fprintf(w, "   %s %s %s: %s\n", branch(i, len(s.components)), icon(c.Healthy), c.Name, c.Status)
			if c.Healthy {
				healthy++
			}
		}
		fmt.Fprintf(w, "\n")
	}

	if len(s.pipelineDirs) > 0 {
		fmt.Fprintf(w, "🧩 Pipelines\n")
		for i, dir := range s.pipelineDirs {
			fmt.Fprintf(w, "   %s %s\n", branch(i, len(s.pipelineDirs)), dir)
		}
		fmt.Fprintf(w, "\n")
	}

	if log != nil {
		log.Debug("startup summary", logger.Fields(
			"infrastructure", len(s.infrastructure),
			"healthy", healthy,
			"components", len(s.components),
			logger.FieldDuration, s.startupDuration.Milliseconds(),
		))
	}
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func icon(healthy bool) string {
	if healthy {
		return "✅"
	}
	return "❌"
}
