package calendar

type HolidayResponse struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Name       string `json:"name"`
	IsOptional bool   `json:"is_optional"`
}

type HolidayInput struct {
	Date       string `json:"date" binding:"required"`
	Name       string `json:"name" binding:"required"`
	IsOptional bool   `json:"is_optional"`
}

type BulkImportRequest struct {
	Holidays []HolidayInput `json:"holidays" binding:"required,min=1,dive"`
}

type BulkImportResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
