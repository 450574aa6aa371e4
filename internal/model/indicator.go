package model

// IndicatorKind distinguishes plain indicators from composites.
type IndicatorKind string

const (
	IndicatorSingle    IndicatorKind = "unico"
	IndicatorComposite IndicatorKind = "composto"
)

// DataType tells how an indicator's values are displayed.
type DataType string

const (
	DataCurrency DataType = "moeda"
	DataNumber   DataType = "numero"
	DataPercent  DataType = "percentual"
)

// Indicator is a named measure with ledger entries of its own, or a
// composite of other indicators and categories.
type Indicator struct {
	ID       string
	Name     string
	Kind     IndicatorKind
	DataType DataType
	Active   bool
}

// IndicatorPart is one signed member of a composite indicator. Source.Kind
// is either SourceCategory or SourceIndicator.
type IndicatorPart struct {
	IndicatorID string
	Source      Source
	Sign        Sign
}
