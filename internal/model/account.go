package model

// Sign is the arithmetic marker of a DRE line or component.
type Sign string

const (
	SignPlus   Sign = "+"
	SignMinus  Sign = "-"
	SignResult Sign = "=" // result/subtotal line, display only
)

// Valid reports whether s is one of the known account signs.
func (s Sign) Valid() bool {
	return s == SignPlus || s == SignMinus || s == SignResult
}

// Account is one line of the DRE chart of accounts.
type Account struct {
	ID       string
	Name     string
	Order    int
	Sign     Sign
	ParentID string // "" = root
	Active   bool
	Visible  bool
}

// IsRoot reports whether the account has no parent.
func (a Account) IsRoot() bool {
	return a.ParentID == ""
}

// CompanyAccount links a root account to a company that reports on it.
type CompanyAccount struct {
	CompanyID string
	AccountID string
	Active    bool
}
