package core

// DayAmount is spending aggregated by calendar day.
type DayAmount struct {
	Day    string `json:"day"`
	Amount Money  `json:"amount"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category Category `json:"category"`
	Amount   Money    `json:"amount"`
}

// CategoryShare is a CategoryAmount with its percentage of the total.
type CategoryShare struct {
	Category       Category `json:"category"`
	Amount         Money    `json:"amount"`
	PercentOfTotal float64  `json:"percentOfTotal"`
}

// MonthAmount is spending aggregated by YYYY-MM.
type MonthAmount struct {
	YearMonth string `json:"yearMonth"`
	Amount    Money  `json:"amount"`
}
