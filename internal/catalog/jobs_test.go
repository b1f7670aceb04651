package catalog

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
)

func TestReportByCluster(t *testing.T) {
	jobs := &Jobs{
		Items: []*Job{
			{ID: "1", Title: "Data Scientist", CategoryCode: "IC", PrimaryCluster: "Technology", SalaryRange: "10-20"},
			{ID: "2", Title: "Nurse", CategoryCode: "SI"},
		},
	}

	report := jobs.ReportByCluster()

	entries, ok := report["Technology"]
	if !ok || len(entries) != 1 {
		t.Fatalf("expected one Technology entry, got %v", report)
	}
	if entries[0]["title"] != "Data Scientist" || entries[0]["salary"] != "10-20" {
		t.Fatalf("unexpected entry: %v", entries[0])
	}
	if len(report["Other"]) != 1 {
		t.Fatalf("expected job without cluster under Other, got %v", report)
	}
}

func TestRetainPreservesOrder(t *testing.T) {
	jobs := &Jobs{Items: []*Job{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}}

	dropped := jobs.Retain(func(j *Job) bool { return j.ID != "2" && j.ID != "3" })

	if len(dropped) != 2 || dropped[0] != "2" || dropped[1] != "3" {
		t.Fatalf("unexpected dropped ids: %v", dropped)
	}
	if jobs.Len() != 2 || jobs.Items[0].ID != "1" || jobs.Items[1].ID != "4" {
		t.Fatalf("unexpected remaining jobs: %v", jobs.Items)
	}
	if jobs.FindByID("4") == nil || jobs.FindByID("2") != nil {
		t.Fatalf("FindByID mismatch")
	}
}

func TestClustersDeduplicates(t *testing.T) {
	job := &Job{
		PrimaryCluster:    "Technology",
		SecondaryClusters: []string{"Engineering", "Technology", ""},
		Subclusters:       []string{"Software", "Engineering"},
	}

	got := job.Clusters()
	want := []string{"Technology", "Engineering", "Software"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDecodeJob(t *testing.T) {
	job, err := DecodeJob(map[string]any{
		"job_id":              42,
		"nco_title":           "Civil Engineer",
		"riasec_code":         "RIC",
		"primary_skills":      []any{"CAD", "Surveying"},
		"aptitude_scores":     map[string]any{"numerical": 80, "spatial": 75.5},
		"market_demand_score": 8.5,
		"unknown_field":       true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.ID != "42" || job.Title != "Civil Engineer" || job.MarketDemand != "8.5" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if len(job.Skills) != 2 || job.TraitScores["spatial"] != 75.5 {
		t.Fatalf("unexpected collections: %+v", job)
	}

	_, err = DecodeJob(map[string]any{"nco_title": "No id"})
	if !errors.Is(err, ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob, got %v", err)
	}

	_, err = DecodeJob(map[string]any{"job_id": "1", "aptitude_scores": "high"})
	if !errors.Is(err, ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob for bad aptitudes, got %v", err)
	}
}

func TestDumpToTmpFile(t *testing.T) {
	jobs := &Jobs{Items: []*Job{{ID: "1", Title: "Nurse", CategoryCode: "S"}}}

	path, err := jobs.DumpToTmpFile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	var got []*Job
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("parse dump: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Nurse" {
		t.Fatalf("unexpected dump: %s", data)
	}
}

func TestClusterNames(t *testing.T) {
	jobs := &Jobs{Items: []*Job{
		{ID: "1", PrimaryCluster: "Technology"},
		{ID: "2", PrimaryCluster: "Arts"},
		{ID: "3", PrimaryCluster: "Technology"},
		{ID: "4"},
	}}

	got := jobs.ClusterNames()
	if len(got) != 2 || got[0] != "Arts" || got[1] != "Technology" {
		t.Fatalf("unexpected cluster names: %v", got)
	}
}
