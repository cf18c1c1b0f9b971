package models

import (
	"fmt"
	"sort"
	"strings"
)

// EmployeeRecord is the request body of the prediction endpoint.
// Pointer fields distinguish an absent field from a zero value.
type EmployeeRecord struct {
	Age                      *int    `json:"Age"`
	BusinessTravel           *string `json:"BusinessTravel"`
	DailyRate                *int    `json:"DailyRate"`
	Department               *string `json:"Department"`
	DistanceFromHome         *int    `json:"DistanceFromHome"`
	Education                *int    `json:"Education"`
	EducationField           *string `json:"EducationField"`
	EnvironmentSatisfaction  *int    `json:"EnvironmentSatisfaction"`
	Gender                   *string `json:"Gender"`
	HourlyRate               *int    `json:"HourlyRate"`
	JobInvolvement           *int    `json:"JobInvolvement"`
	JobLevel                 *int    `json:"JobLevel"`
	JobRole                  *string `json:"JobRole"`
	JobSatisfaction          *int    `json:"JobSatisfaction"`
	MaritalStatus            *string `json:"MaritalStatus"`
	MonthlyIncome            *int    `json:"MonthlyIncome"`
	MonthlyRate              *int    `json:"MonthlyRate"`
	NumCompaniesWorked       *int    `json:"NumCompaniesWorked"`
	OverTime                 *int    `json:"OverTime"`
	PercentSalaryHike        *int    `json:"PercentSalaryHike"`
	PerformanceRating        *int    `json:"PerformanceRating"`
	RelationshipSatisfaction *int    `json:"RelationshipSatisfaction"`
	StockOptionLevel         *int    `json:"StockOptionLevel"`
	TotalWorkingYears        *int    `json:"TotalWorkingYears"`
	TrainingTimesLastYear    *int    `json:"TrainingTimesLastYear"`
	WorkLifeBalance          *int    `json:"WorkLifeBalance"`
	YearsAtCompany           *int    `json:"YearsAtCompany"`
	YearsInCurrentRole       *int    `json:"YearsInCurrentRole"`
	YearsSinceLastPromotion  *int    `json:"YearsSinceLastPromotion"`
	YearsWithCurrManager     *int    `json:"YearsWithCurrManager"`
}

// FieldValue is one named cell of an employee record
type FieldValue struct {
	Name        string
	Number      float64
	Text        string
	Categorical bool
}

// intRange is the admissible inclusive range of an integer field
type intRange struct {
	min, max int
}

var integerRanges = map[string]intRange{
	"Age":                      {18, 65},
	"DailyRate":                {100, 1500},
	"DistanceFromHome":         {1, 30},
	"Education":                {1, 5},
	"EnvironmentSatisfaction":  {1, 4},
	"HourlyRate":               {30, 100},
	"JobInvolvement":           {1, 4},
	"JobLevel":                 {1, 5},
	"JobSatisfaction":          {1, 4},
	"MonthlyIncome":            {1000, 20000},
	"MonthlyRate":              {2000, 27000},
	"NumCompaniesWorked":       {0, 10},
	"OverTime":                 {0, 1},
	"PercentSalaryHike":        {10, 25},
	"PerformanceRating":        {3, 4},
	"RelationshipSatisfaction": {1, 4},
	"StockOptionLevel":         {0, 3},
	"TotalWorkingYears":        {0, 40},
	"TrainingTimesLastYear":    {0, 6},
	"WorkLifeBalance":          {1, 4},
	"YearsAtCompany":           {0, 40},
	"YearsInCurrentRole":       {0, 18},
	"YearsSinceLastPromotion":  {0, 15},
	"YearsWithCurrManager":     {0, 17},
}

// ValidationError lists every field that failed its declared constraint
type ValidationError struct {
	Fields map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, e.Fields[name])
	}
	return "invalid employee record: " + strings.Join(parts, "; ")
}

// integers and strings return the record's fields in declaration order
func (r *EmployeeRecord) integers() []struct {
	name  string
	value *int
} {
	return []struct {
		name  string
		value *int
	}{
		{"Age", r.Age},
		{"DailyRate", r.DailyRate},
		{"DistanceFromHome", r.DistanceFromHome},
		{"Education", r.Education},
		{"EnvironmentSatisfaction", r.EnvironmentSatisfaction},
		{"HourlyRate", r.HourlyRate},
		{"JobInvolvement", r.JobInvolvement},
		{"JobLevel", r.JobLevel},
		{"JobSatisfaction", r.JobSatisfaction},
		{"MonthlyIncome", r.MonthlyIncome},
		{"MonthlyRate", r.MonthlyRate},
		{"NumCompaniesWorked", r.NumCompaniesWorked},
		{"OverTime", r.OverTime},
		{"PercentSalaryHike", r.PercentSalaryHike},
		{"PerformanceRating", r.PerformanceRating},
		{"RelationshipSatisfaction", r.RelationshipSatisfaction},
		{"StockOptionLevel", r.StockOptionLevel},
		{"TotalWorkingYears", r.TotalWorkingYears},
		{"TrainingTimesLastYear", r.TrainingTimesLastYear},
		{"WorkLifeBalance", r.WorkLifeBalance},
		{"YearsAtCompany", r.YearsAtCompany},
		{"YearsInCurrentRole", r.YearsInCurrentRole},
		{"YearsSinceLastPromotion", r.YearsSinceLastPromotion},
		{"YearsWithCurrManager", r.YearsWithCurrManager},
	}
}

func (r *EmployeeRecord) strings() []struct {
	name  string
	value *string
} {
	return []struct {
		name  string
		value *string
	}{
		{"BusinessTravel", r.BusinessTravel},
		{"Department", r.Department},
		{"EducationField", r.EducationField},
		{"Gender", r.Gender},
		{"JobRole", r.JobRole},
		{"MaritalStatus", r.MaritalStatus},
	}
}

// Validate checks every field against its declared range or domain
func (r *EmployeeRecord) Validate() error {
	fields := make(map[string]string)

	for _, f := range r.integers() {
		if f.value == nil {
			fields[f.name] = "field required"
			continue
		}
		rng := integerRanges[f.name]
		if *f.value < rng.min || *f.value > rng.max {
			fields[f.name] = fmt.Sprintf("must be between %d and %d, got %d", rng.min, rng.max, *f.value)
		}
	}

	for _, f := range r.strings() {
		if f.value == nil {
			fields[f.name] = "field required"
			continue
		}
		if strings.TrimSpace(*f.value) == "" {
			fields[f.name] = "must not be empty"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Values returns the record as named cells in schema order.
// Absent fields are skipped; call Validate first.
func (r *EmployeeRecord) Values() []FieldValue {
	order := []string{
		"Age", "BusinessTravel", "DailyRate", "Department", "DistanceFromHome",
		"Education", "EducationField", "EnvironmentSatisfaction", "Gender",
		"HourlyRate", "JobInvolvement", "JobLevel", "JobRole", "JobSatisfaction",
		"MaritalStatus", "MonthlyIncome", "MonthlyRate", "NumCompaniesWorked",
		"OverTime", "PercentSalaryHike", "PerformanceRating",
		"RelationshipSatisfaction", "StockOptionLevel", "TotalWorkingYears",
		"TrainingTimesLastYear", "WorkLifeBalance", "YearsAtCompany",
		"YearsInCurrentRole", "YearsSinceLastPromotion", "YearsWithCurrManager",
	}

	byName := make(map[string]FieldValue, len(order))
	for _, f := range r.integers() {
		if f.value != nil {
			byName[f.name] = FieldValue{Name: f.name, Number: float64(*f.value)}
		}
	}
	for _, f := range r.strings() {
		if f.value != nil {
			byName[f.name] = FieldValue{Name: f.name, Text: *f.value, Categorical: true}
		}
	}

	values := make([]FieldValue, 0, len(byName))
	for _, name := range order {
		if v, ok := byName[name]; ok {
			values = append(values, v)
		}
	}
	return values
}

// ExampleEmployee returns the documented example record
func ExampleEmployee() *EmployeeRecord {
	i := func(v int) *int { return &v }
	s := func(v string) *string { return &v }
	return &EmployeeRecord{
		Age:                      i(32),
		BusinessTravel:           s("Travel_Frequently"),
		DailyRate:                i(800),
		Department:               s("Sales"),
		DistanceFromHome:         i(15),
		Education:                i(3),
		EducationField:           s("Life Sciences"),
		EnvironmentSatisfaction:  i(2),
		Gender:                   s("Male"),
		HourlyRate:               i(65),
		JobInvolvement:           i(2),
		JobLevel:                 i(2),
		JobRole:                  s("Sales Representative"),
		JobSatisfaction:          i(2),
		MaritalStatus:            s("Single"),
		MonthlyIncome:            i(3500),
		MonthlyRate:              i(14000),
		NumCompaniesWorked:       i(3),
		OverTime:                 i(1),
		PercentSalaryHike:        i(11),
		PerformanceRating:        i(3),
		RelationshipSatisfaction: i(2),
		StockOptionLevel:         i(0),
		TotalWorkingYears:        i(8),
		TrainingTimesLastYear:    i(2),
		WorkLifeBalance:          i(2),
		YearsAtCompany:           i(3),
		YearsInCurrentRole:       i(2),
		YearsSinceLastPromotion:  i(2),
		YearsWithCurrManager:     i(1),
	}
}
