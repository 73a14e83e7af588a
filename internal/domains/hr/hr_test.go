package hr

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/internal/etl"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return New(nil, t.TempDir(), t.TempDir(), t.TempDir())
}

func TestClassifyEmploymentType(t *testing.T) {
	p := newTestPipeline(t)
	tests := []struct {
		raw  string
		want string
	}{
		{"Full-Time", "full_time"},
		{"FT", "full_time"},
		{"regular", "full_time"},
		{"part time", "part_time"},
		{"1099", "contractor"},
		{"c2c", "contractor"},
		{"Co-Op", "intern"},
		{"seasonal", "temp"},
		{"astronaut", "full_time"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.ClassifyEmploymentType(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Mary Jane Watson", normalizeName("  mary jane WATSON "))
	assert.Equal(t, "", normalizeName("   "))
}

func TestNormalizeDepartment(t *testing.T) {
	assert.Equal(t, "Engineering", normalizeDepartment("ENG"))
	assert.Equal(t, "People", normalizeDepartment("people ops"))
	assert.Equal(t, "Quantum Research", normalizeDepartment("Quantum Research"))
}

func TestParseSalary(t *testing.T) {
	assert.Equal(t, 125000.0, parseSalary("$125,000"))
	assert.Equal(t, 95000.50, parseSalary("95000.50 USD"))
	assert.Equal(t, 0.0, parseSalary("n/a"))
}

func TestParseDate(t *testing.T) {
	assert.Equal(t, "2023-06-15", parseDate("2023-06-15"))
	assert.Equal(t, "2023-06-15", parseDate("06/15/2023"))
	assert.Equal(t, "", parseDate("sometime in june"))
	assert.Equal(t, "", parseDate(""))
}

func TestResolveLevel(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Intern", "IC1"},
		{"Engineer I", "IC1"},
		{"Junior Developer", "IC1"},
		{"Software Engineer II", "IC2"},
		{"Associate Product Manager", "IC2"},
		{"Senior Engineer", "IC3"},
		{"Engineer III", "IC3"},
		{"Staff Engineer", "IC4"},
		{"Lead Designer", "IC4"},
		{"Principal Scientist", "IC5"},
		{"Manager, Data Platform", "IC2"},
		{"Manager of Operations", "M1"},
		{"Sr Manager Support", "M2"},
		{"Director of Sales", "D1"},
		{"VP Engineering", "VP"},
		{"Vice President Finance", "VP"},
		{"Wizard", "IC2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveLevel(tt.title), "title=%q", tt.title)
	}
}

func TestBucketTenure(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{30, "0-3 months"},
		{89, "0-3 months"},
		{200, "3-12 months"},
		{500, "1-2 years"},
		{1000, "2-5 years"},
		{3000, "5+ years"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketTenure(tt.days), "days=%d", tt.days)
	}
}

func TestActiveOn(t *testing.T) {
	row := etl.Row{"hire_date": "2023-01-15", "termination_date": "2024-03-01"}
	assert.False(t, activeOn(row, "2023-01-01"))
	assert.True(t, activeOn(row, "2023-06-01"))
	assert.False(t, activeOn(row, "2024-03-01"), "termination day itself is inactive")

	current := etl.Row{"hire_date": "2023-01-15", "termination_date": ""}
	assert.True(t, activeOn(current, "2024-01-01"))
}

func TestMonthStarts(t *testing.T) {
	from := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	starts := monthStarts(from, to)
	require.Len(t, starts, 4)
	assert.Equal(t, "2024-01-01", starts[0].Format("2006-01-02"))
	assert.Equal(t, "2024-04-01", starts[3].Format("2006-01-02"))
}

func TestHeadcountSummary(t *testing.T) {
	snapshots := etl.FrameFromRows([]etl.Row{
		{"snapshot_date": "2024-01-01", "department": "Engineering", "headcount": 10, "fte_count": 9.5, "contractor_count": 1, "open_reqs": 0},
		{"snapshot_date": "2024-02-01", "department": "Engineering", "headcount": 12, "fte_count": 11.0, "contractor_count": 2, "open_reqs": 0},
		{"snapshot_date": "2024-02-01", "department": "Sales", "headcount": 5, "fte_count": 5.0, "contractor_count": 0, "open_reqs": 0},
	})

	summary := HeadcountSummary(snapshots)
	require.Equal(t, 3, summary.Nrow(), "latest month departments plus total")

	rows := summary.Maps()
	last := rows[len(rows)-1]
	assert.Equal(t, "Total", etl.AsString(last["department"]))
	assert.Equal(t, 17, etl.AsInt(last["headcount"]))
	assert.InDelta(t, 16.0, etl.AsFloat(last["fte_count"]), 0.001)
	assert.Equal(t, 2, etl.AsInt(last["contractor_count"]))
}

func employeeFixture() []etl.Row {
	return []etl.Row{
		{
			"employee_id": "EMP00001", "job_title": "Senior Engineer", "department": "Engineering",
			"base_salary": 140000.0, "is_active": "true", "hire_date": "2023-01-01",
			"termination_date": "", "employment_type": "full_time", "manager_id": "EMP00004",
			"gender": "F", "location": "NYC",
		},
		{
			"employee_id": "EMP00002", "job_title": "Senior Engineer", "department": "Engineering",
			"base_salary": 150000.0, "is_active": "true", "hire_date": "2020-01-01",
			"termination_date": "", "employment_type": "full_time", "manager_id": "EMP00004",
			"gender": "M", "location": "NYC",
		},
		{
			"employee_id": "EMP00003", "job_title": "Sales Director", "department": "Sales",
			"base_salary": 90000.0, "is_active": "false", "hire_date": "2023-01-01",
			"termination_date": "2024-06-01", "employment_type": "full_time", "manager_id": "EMP00004",
			"gender": "M", "location": "SF",
		},
		{
			"employee_id": "EMP00004", "job_title": "VP Engineering", "department": "Engineering",
			"base_salary": 300000.0, "is_active": "true", "hire_date": "2019-05-01",
			"termination_date": "", "employment_type": "full_time", "manager_id": "",
			"gender": "F", "location": "NYC",
		},
	}
}

func TestAnalyzeSalaryBands(t *testing.T) {
	p := newTestPipeline(t)
	bands, err := p.AnalyzeSalaryBands(context.Background(), etl.FrameFromRows(employeeFixture()))
	require.NoError(t, err)
	require.Equal(t, 2, bands.Nrow(), "IC3 and VP, inactive employee excluded")

	rows := bands.Maps()
	ic3 := rows[0]
	assert.Equal(t, "Senior", etl.AsString(ic3["band"]))
	assert.Equal(t, 2, etl.AsInt(ic3["employee_count"]))
	assert.InDelta(t, 145000.0, etl.AsFloat(ic3["median_salary"]), 0.001)
	assert.InDelta(t, 1.036, etl.AsFloat(ic3["compa_ratio_mean"]), 0.001)

	vp := rows[1]
	assert.Equal(t, "VP", etl.AsString(vp["level"]))
	assert.InDelta(t, 0.938, etl.AsFloat(vp["compa_ratio_mean"]), 0.001)
}

func TestComputeAttritionRates(t *testing.T) {
	p := newTestPipeline(t)
	employees := etl.FrameFromRows([]etl.Row{
		{"employee_id": "EMP00001", "department": "Engineering", "hire_date": "2023-01-01", "termination_date": "2024-06-01"},
		{"employee_id": "EMP00002", "department": "Engineering", "hire_date": "2020-01-01", "termination_date": ""},
		{"employee_id": "EMP00003", "department": "Engineering", "hire_date": "2019-01-01", "termination_date": "2023-12-01"},
	})

	attrition := p.ComputeAttritionRates(context.Background(), employees, "2024-01-01", "2024-12-31")
	require.Equal(t, 1, attrition.Nrow())

	row := attrition.Maps()[0]
	assert.Equal(t, "Engineering", etl.AsString(row["department"]))
	assert.Equal(t, "1-2 years", etl.AsString(row["tenure_bucket"]))
	assert.Equal(t, 1, etl.AsInt(row["terminations"]))
	assert.Equal(t, 2, etl.AsInt(row["avg_headcount"]), "pre-period leaver does not count toward headcount")
	assert.InDelta(t, 0.5, etl.AsFloat(row["attrition_rate"]), 0.0001)
}

func TestRegrettableAttrition(t *testing.T) {
	employees := etl.FrameFromRows([]etl.Row{
		{"employee_id": "EMP00001", "department": "Engineering", "termination_date": "2024-06-01"},
		{"employee_id": "EMP00002", "department": "Engineering", "termination_date": "2024-07-01"},
		{"employee_id": "EMP00003", "department": "Engineering", "termination_date": ""},
	})

	summary := RegrettableAttrition(employees, map[string]bool{"EMP00001": true})
	require.Equal(t, 1, summary.Nrow())

	row := summary.Maps()[0]
	assert.Equal(t, 2, etl.AsInt(row["total_terms"]))
	assert.Equal(t, 1, etl.AsInt(row["regrettable_terms"]))
	assert.InDelta(t, 0.5, etl.AsFloat(row["regrettable_pct"]), 0.0001)
}

func TestStageOrder(t *testing.T) {
	tests := []struct {
		stage string
		want  int
	}{
		{"applied", 0},
		{"Recruiter_Screen", 1},
		{"panel", 2},
		{"offer_extended", 3},
		{"started", 4},
		{"withdrawn", -1},
		{"limbo", -2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StageOrder(tt.stage), "stage=%q", tt.stage)
	}
}

func TestClassifySource(t *testing.T) {
	assert.Equal(t, "LinkedIn", ClassifySource("linkedin_recruiter"))
	assert.Equal(t, "Referral", ClassifySource("Employee_Referral"))
	assert.Equal(t, "Direct", ClassifySource("careers_page"))
	assert.Equal(t, "Job Board", ClassifySource("glassdoor"))
	assert.Equal(t, "Agency", ClassifySource("staffing_agency"))
	assert.Equal(t, "Other", ClassifySource("carrier pigeon"))
}

func TestComputeFunnelMetrics(t *testing.T) {
	p := newTestPipeline(t)
	atsDir := filepath.Join(p.dataDir, "hr", "ats_exports")
	require.NoError(t, os.MkdirAll(atsDir, 0o755))

	csv := "candidate_id,department,source,current_stage\n" +
		"C-1,Engineering,referral,hired\n" +
		"C-2,Engineering,referral,onsite\n" +
		"C-3,Engineering,referral,phone_screen\n" +
		"C-4,Engineering,referral,rejected\n"
	require.NoError(t, os.WriteFile(filepath.Join(atsDir, "candidates_2024_01.csv"), []byte(csv), 0o644))

	funnel, err := p.ComputeFunnelMetrics(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 5, funnel.Nrow(), "one row per stage")

	byStage := map[string]etl.Row{}
	for _, row := range funnel.Maps() {
		byStage[etl.AsString(row["stage"])] = row
	}
	assert.Equal(t, 3, etl.AsInt(byStage["applied"]["candidates"]), "rejected candidates drop out entirely")
	assert.Equal(t, 2, etl.AsInt(byStage["onsite"]["candidates"]))
	assert.Equal(t, 1, etl.AsInt(byStage["hired"]["candidates"]))
	assert.InDelta(t, 0.6667, etl.AsFloat(byStage["onsite"]["conversion_rate"]), 0.0001)
	assert.InDelta(t, 0.5, etl.AsFloat(byStage["offer"]["conversion_rate"]), 0.0001)
	assert.Equal(t, "Referral", etl.AsString(byStage["hired"]["source"]))
}

func TestComputeFunnelMetrics_NoExports(t *testing.T) {
	p := newTestPipeline(t)
	funnel, err := p.ComputeFunnelMetrics(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, funnel.Nrow())
}

func TestMapEEOCategory(t *testing.T) {
	tests := []struct {
		title string
		level string
		want  string
	}{
		{"VP Engineering", "VP", "Executive/Senior Officials"},
		{"Engineering Manager", "M1", "First/Mid-Level Officials"},
		{"Data Scientist", "IC3", "Professionals"},
		{"Support Technician", "IC1", "Technicians"},
		{"Account Executive", "IC2", "Sales Workers"},
		{"Office Coordinator", "IC1", "Administrative Support"},
		{"Groundskeeper", "IC1", "Professionals"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapEEOCategory(tt.title, tt.level), "title=%q", tt.title)
	}
}

func TestGenerateEEOReport(t *testing.T) {
	p := newTestPipeline(t)
	report := p.GenerateEEOReport(context.Background(), etl.FrameFromRows(employeeFixture()))
	require.NotZero(t, report.Nrow())

	for _, row := range report.Maps() {
		assert.Equal(t, 3, etl.AsInt(row["total_active"]))
		dim := etl.AsString(row["dimension"])
		assert.Contains(t, []string{"gender", "location"}, dim)
	}
}

func TestPayEquityAnalysis(t *testing.T) {
	equity := PayEquityAnalysis(etl.FrameFromRows(employeeFixture()))
	require.NotZero(t, equity.Nrow())

	rows := equity.Maps()
	ic3f := rows[0]
	assert.Equal(t, "IC3", etl.AsString(ic3f["level"]))
	assert.Equal(t, "F", etl.AsString(ic3f["gender"]))
	assert.InDelta(t, 140000.0, etl.AsFloat(ic3f["median_salary"]), 0.001)
	assert.InDelta(t, 145000.0, etl.AsFloat(ic3f["overall_median"]), 0.001)
	assert.InDelta(t, 0.9655, etl.AsFloat(ic3f["pay_ratio"]), 0.0001)
}

func TestPayEquityAnalysis_NoGenderColumn(t *testing.T) {
	employees := etl.FrameFromRows([]etl.Row{
		{"employee_id": "EMP00001", "job_title": "Engineer", "base_salary": 100000.0, "is_active": "true"},
	})
	assert.Equal(t, 0, PayEquityAnalysis(employees).Nrow())
}

func TestClassifyOrgLevel(t *testing.T) {
	assert.Equal(t, "CEO", ClassifyOrgLevel(0))
	assert.Equal(t, "C-Suite", ClassifyOrgLevel(1))
	assert.Equal(t, "Manager", ClassifyOrgLevel(4))
	assert.Equal(t, "IC", ClassifyOrgLevel(7))
	assert.Equal(t, "Deep IC", ClassifyOrgLevel(9))
}

func TestResolveOrgHierarchy(t *testing.T) {
	p := newTestPipeline(t)
	org, err := p.ResolveOrgHierarchy(context.Background(), etl.FrameFromRows(employeeFixture()))
	require.NoError(t, err)
	require.Equal(t, 3, org.Nrow(), "inactive employee excluded")

	byID := map[string]etl.Row{}
	for _, row := range org.Maps() {
		byID[etl.AsString(row["employee_id"])] = row
	}

	vp := byID["EMP00004"]
	assert.Equal(t, 0, etl.AsInt(vp["depth"]))
	assert.Equal(t, "CEO", etl.AsString(vp["org_level"]))
	assert.Equal(t, 2, etl.AsInt(vp["direct_reports"]))
	assert.Equal(t, 2, etl.AsInt(vp["total_reports"]))

	ic := byID["EMP00001"]
	assert.Equal(t, 1, etl.AsInt(ic["depth"]))
	assert.Equal(t, 0, etl.AsInt(ic["direct_reports"]))
	assert.Equal(t, "Engineering", etl.AsString(ic["department"]))
}

func TestIngestHRISData_DedupeAndSupplement(t *testing.T) {
	p := newTestPipeline(t)
	dir := filepath.Join(p.dataDir, "hr", "hris_exports")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	jan := "employee_id,first_name,department,base_salary\n" +
		"EMP00001,ada,eng,100000\n" +
		"EMP00002,grace,sales,90000\n"
	feb := "employee_id,first_name,department,base_salary\n" +
		"EMP00001,ada,eng,110000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "employees_2024_01.csv"), []byte(jan), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "employees_2024_02.csv"), []byte(feb), 0o644))

	benefits := "employee_id,benefits_plan\nEMP00001,gold\nEMP00002,silver\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "benefits_enrollment.csv"), []byte(benefits), 0o644))

	df, err := p.IngestHRISData(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, df.Nrow(), "duplicate employee collapsed")

	byID := map[string]etl.Row{}
	for _, row := range df.Maps() {
		byID[etl.AsString(row["employee_id"])] = row
	}
	assert.Equal(t, 110000.0, etl.AsFloat(byID["EMP00001"]["base_salary"]), "later export wins")
	assert.Equal(t, "gold", etl.AsString(byID["EMP00001"]["benefits_plan"]))
}

func TestValidate_MissingSources(t *testing.T) {
	p := newTestPipeline(t)
	status := p.Validate(context.Background())
	assert.Equal(t, "error", status.Status)
}
