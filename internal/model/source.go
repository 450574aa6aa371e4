package model

import "fmt"

// SourceKind identifies what a component or formula operand points at.
type SourceKind string

const (
	SourceCategory  SourceKind = "categoria"
	SourceIndicator SourceKind = "indicador"
	SourceAccount   SourceKind = "conta"
)

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	return k == SourceCategory || k == SourceIndicator || k == SourceAccount
}

// Source is a typed reference to a category, indicator or account.
type Source struct {
	Kind SourceKind
	ID   string
}

func (s Source) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

// Component adds (or subtracts) the value of a source into its account.
type Component struct {
	ID        string
	AccountID string
	Source    Source
	Sign      Sign // + or -
}

// Operator is a binary formula operator.
type Operator string

const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "*"
	OpDiv Operator = "/"
)

// Valid reports whether o is a supported operator.
func (o Operator) Valid() bool {
	switch o {
	case OpAdd, OpSub, OpMul, OpDiv:
		return true
	}
	return false
}

// Formula computes an account as Left <Operator> Right.
type Formula struct {
	ID        string
	AccountID string
	Left      Source
	Operator  Operator
	Right     Source
}
