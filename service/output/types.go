package output

import (
	"github.com/thirukguru/aws-posture/model"
	findingstable "github.com/thirukguru/aws-posture/shared/findings_table"
	inventorytable "github.com/thirukguru/aws-posture/shared/inventory_table"
	jsonoutput "github.com/thirukguru/aws-posture/shared/json_output"
	"github.com/thirukguru/aws-posture/shared/spinner"
)

// Format represents the output format type
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// Renderer draws results in one concrete form.
type Renderer interface {
	DrawAuditTable(input model.RenderAuditInput)
	DrawInventoryTable(input model.RenderInventoryInput)
	OutputAuditJSON(input model.RenderAuditInput) error
	OutputInventoryJSON(input model.RenderInventoryInput) error
	StopSpinner()
}

type realRenderer struct{}

func (r *realRenderer) DrawAuditTable(input model.RenderAuditInput) {
	findingstable.DrawAuditTable(input)
}

func (r *realRenderer) DrawInventoryTable(input model.RenderInventoryInput) {
	inventorytable.DrawInventoryTable(input)
}

func (r *realRenderer) OutputAuditJSON(input model.RenderAuditInput) error {
	return jsonoutput.OutputAuditJSON(input)
}

func (r *realRenderer) OutputInventoryJSON(input model.RenderInventoryInput) error {
	return jsonoutput.OutputInventoryJSON(input)
}

func (r *realRenderer) StopSpinner() {
	spinner.StopSpinner()
}

type service struct {
	format   Format
	renderer Renderer
}

// Service renders audit and inventory results in the selected format.
type Service interface {
	RenderAudit(input model.RenderAuditInput) error
	RenderInventory(input model.RenderInventoryInput) error
	StopSpinner()
}
