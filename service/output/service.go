// Package output provides a service for rendering results to the console.
package output

import (
	"github.com/thirukguru/aws-posture/model"
)

// NewService creates a new output service with the specified format
func NewService(format string) Service {
	return newService(format, &realRenderer{})
}

func newService(format string, r Renderer) *service {
	f := FormatTable
	if format == string(FormatJSON) {
		f = FormatJSON
	}

	return &service{
		format:   f,
		renderer: r,
	}
}

func (s *service) RenderAudit(input model.RenderAuditInput) error {
	if s.format == FormatJSON {
		return s.renderer.OutputAuditJSON(input)
	}
	s.renderer.DrawAuditTable(input)
	return nil
}

func (s *service) RenderInventory(input model.RenderInventoryInput) error {
	if s.format == FormatJSON {
		return s.renderer.OutputInventoryJSON(input)
	}
	s.renderer.DrawInventoryTable(input)
	return nil
}

func (s *service) StopSpinner() {
	s.renderer.StopSpinner()
}
