package dataset

import (
	"math"
	"math/rand"
	"strconv"
)

// HRColumns is the column layout of the IBM HR attrition dataset
var HRColumns = []string{
	"Age", "Attrition", "BusinessTravel", "DailyRate", "Department",
	"DistanceFromHome", "Education", "EducationField", "EmployeeCount",
	"EmployeeNumber", "EnvironmentSatisfaction", "Gender", "HourlyRate",
	"JobInvolvement", "JobLevel", "JobRole", "JobSatisfaction",
	"MaritalStatus", "MonthlyIncome", "MonthlyRate", "NumCompaniesWorked",
	"Over18", "OverTime", "PercentSalaryHike", "PerformanceRating",
	"RelationshipSatisfaction", "StandardHours", "StockOptionLevel",
	"TotalWorkingYears", "TrainingTimesLastYear", "WorkLifeBalance",
	"YearsAtCompany", "YearsInCurrentRole", "YearsSinceLastPromotion",
	"YearsWithCurrManager",
}

var (
	travelOptions = []string{"Non-Travel", "Travel_Rarely", "Travel_Rarely", "Travel_Rarely", "Travel_Frequently"}
	departments   = map[string][]string{
		"Sales":                  {"Sales Executive", "Sales Representative", "Manager"},
		"Research & Development": {"Research Scientist", "Laboratory Technician", "Manufacturing Director", "Healthcare Representative", "Research Director"},
		"Human Resources":        {"Human Resources", "Manager"},
	}
	departmentOrder = []string{"Research & Development", "Research & Development", "Sales", "Human Resources"}
	educationFields = []string{"Life Sciences", "Medical", "Marketing", "Technical Degree", "Human Resources", "Other"}
	maritalStatuses = []string{"Single", "Married", "Married", "Divorced"}
)

// SyntheticHR generates n employee rows in the raw IBM HR layout, with
// Yes/No Attrition and OverTime, the constant columns and a unique
// EmployeeNumber. Attrition follows a logistic model of overtime, tenure,
// satisfaction, income and marital status, and both classes always appear
// at least twice when n >= 4.
func SyntheticHR(n int, seed int64) *Table {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]string, n)

	between := func(lo, hi int) int { return lo + rng.Intn(hi-lo+1) }
	pick := func(opts []string) string { return opts[rng.Intn(len(opts))] }
	itoa := strconv.Itoa
	yes := 0

	for i := range rows {
		age := between(18, 60)
		department := pick(departmentOrder)
		role := pick(departments[department])
		jobLevel := between(1, 5)
		if age < 25 && jobLevel > 2 {
			jobLevel = 1
		}
		income := 1000 + jobLevel*2800 + rng.Intn(3000)
		if income > 20000 {
			income = 20000
		}

		maxCareer := age - 18
		if maxCareer > 40 {
			maxCareer = 40
		}
		totalYears := between(0, maxCareer)
		atCompany := between(0, totalYears)
		inRole := min(between(0, atCompany), 18)
		withManager := min(between(0, atCompany), 17)
		sincePromotion := min(between(0, atCompany), 15)

		overtime := rng.Float64() < 0.28
		marital := pick(maritalStatuses)
		jobSat := between(1, 4)
		envSat := between(1, 4)
		relSat := between(1, 4)
		wlb := between(1, 4)
		involvement := between(1, 4)
		distance := between(1, 29)
		stock := between(0, 3)
		if marital == "Single" {
			stock = 0
		}

		logit := -2.4 +
			1.6*b2f(overtime) +
			0.7*b2f(marital == "Single") +
			0.6*b2f(jobLevel == 1) -
			0.04*float64(age-36) -
			0.35*float64(jobSat-2) -
			0.3*float64(envSat-2) -
			0.3*float64(wlb-2) -
			0.3*float64(involvement-2) +
			0.03*float64(distance-9) -
			0.08*float64(atCompany-5) -
			0.00008*float64(income-6500)
		attrited := rng.Float64() < 1/(1+math.Exp(-logit))
		if attrited {
			yes++
		}

		hike := between(11, 25)
		rating := 3
		if hike >= 20 {
			rating = 4
		}

		rows[i] = []string{
			itoa(age),
			yesNo(attrited),
			pick(travelOptions),
			itoa(between(102, 1499)),
			department,
			itoa(distance),
			itoa(between(1, 5)),
			pick(educationFields),
			"1",
			itoa(i + 1),
			itoa(envSat),
			pick([]string{"Male", "Female"}),
			itoa(between(30, 100)),
			itoa(involvement),
			itoa(jobLevel),
			role,
			itoa(jobSat),
			marital,
			itoa(income),
			itoa(between(2094, 26999)),
			itoa(between(0, 9)),
			"Y",
			yesNo(overtime),
			itoa(hike),
			itoa(rating),
			itoa(relSat),
			"80",
			itoa(stock),
			itoa(totalYears),
			itoa(between(0, 6)),
			itoa(wlb),
			itoa(atCompany),
			itoa(inRole),
			itoa(sincePromotion),
			itoa(withManager),
		}
	}

	// Guarantee both classes are stratifiable on tiny samples
	const attritionCol = 1
	if n >= 4 {
		for i := 0; yes < 2 && i < n; i++ {
			if rows[i][attritionCol] == "No" {
				rows[i][attritionCol] = "Yes"
				yes++
			}
		}
		for i := n - 1; n-yes < 2 && i >= 0; i-- {
			if rows[i][attritionCol] == "Yes" {
				rows[i][attritionCol] = "No"
				yes--
			}
		}
	}

	t, err := FromRecords(HRColumns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
