package domain

import "errors"

var (
	ErrInvalidRegion  = errors.New("invalid_region")
	ErrInvalidTaxLine = errors.New("invalid_tax_line")
	ErrInvalidTaxRate = errors.New("invalid_tax_rate")
	ErrEmptyFederal   = errors.New("invalid_federal_lines")
)
