package constants

// Post-processor names as they appear in a document type's postProcessors list.
const (
	PostGenerateDocumentNumber = "generateDocumentNumber"
	PostCalculateItemAmounts   = "calculateItemAmounts"
	PostCalculateTotalAmount   = "calculateTotalAmount"
	PostCalculateTax           = "calculateTax"
	PostCalculateDuration      = "calculateDuration"
)

// Named transforms for array reference results (additionalProcessing).
const (
	TransformAddApprovalOrder = "addApprovalOrder"
)

// Stage labels used on soft issues and log lines.
const (
	StageDirect    = "direct"
	StageReference = "reference"
	StagePost      = "post"
	StageSchema    = "schema"
)

// Well-known keys of the transformation output.
const (
	KeyDocumentType   = "documentType"
	KeyDocumentNumber = "documentNumber"
	KeyItems          = "items"
	KeyAmounts        = "amounts"
	KeySubtotal       = "subtotal"
	KeyTax            = "tax"
	KeyTotal          = "total"
	KeyTotalInWords   = "totalInWords"
)

// TaxRate is the flat VAT rate applied by the tax calculator.
const TaxRate = 0.1
