// Package catalog holds the job catalog model and the readers that stream
// it from files, HTTP endpoints or other stores.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrInvalidJob is returned for records that cannot be used for matching.
var ErrInvalidJob = errors.New("invalid job record")

// Job is a read-only catalog record.
type Job struct {
	ID                string             `json:"job_id"`
	Title             string             `json:"nco_title"`
	Family            string             `json:"family_title,omitempty"`
	CategoryCode      string             `json:"riasec_code"`
	Description       string             `json:"job_description,omitempty"`
	Skills            []string           `json:"primary_skills,omitempty"`
	PrimaryCluster    string             `json:"primary_interest_cluster,omitempty"`
	SecondaryClusters []string           `json:"secondary_interest_clusters,omitempty"`
	Subclusters       []string           `json:"interest_cluster_subcategories,omitempty"`
	ClusterAlignment  string             `json:"interest_riasec_alignment,omitempty"`
	TraitScores       map[string]float64 `json:"aptitude_scores,omitempty"`
	SalaryRange       string             `json:"salary_range_analysis,omitempty"`
	MarketDemand      string             `json:"market_demand_score,omitempty"`
	GrowthProjection  string             `json:"industry_growth_projection,omitempty"`
	LearningPathway   string             `json:"learning_pathway_recommendations,omitempty"`
}

// Clusters returns the primary, secondary and subcategory cluster tags in
// that order without duplicates or blanks.
func (j *Job) Clusters() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(c string) {
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
	}

	add(j.PrimaryCluster)
	for _, c := range j.SecondaryClusters {
		add(c)
	}
	for _, c := range j.Subclusters {
		add(c)
	}
	return out
}

// DecodeJob converts a loosely typed record, as found in JSON documents and
// API pages, into a Job. Numbers are accepted where strings are expected.
func DecodeJob(item any) (*Job, error) {
	var job Job
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &job,
	})
	if err != nil {
		return nil, err
	}

	if err := dec.Decode(item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if strings.TrimSpace(job.ID) == "" {
		return nil, fmt.Errorf("%w: missing job_id", ErrInvalidJob)
	}
	return &job, nil
}

// Jobs is an in-memory list of catalog records.
type Jobs struct {
	Items []*Job
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

func (j *Jobs) FindByID(id string) *Job {
	for _, job := range j.Items {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// Retain keeps the jobs for which keep returns true, preserving order, and
// returns the ids of the dropped ones.
func (j *Jobs) Retain(keep func(*Job) bool) []string {
	var dropped []string
	kept := j.Items[:0]
	for _, job := range j.Items {
		if keep(job) {
			kept = append(kept, job)
			continue
		}
		dropped = append(dropped, job.ID)
	}
	for i := len(kept); i < len(j.Items); i++ {
		j.Items[i] = nil
	}
	j.Items = kept
	return dropped
}

// Clone returns a shallow copy of the list.
func (j *Jobs) Clone() *Jobs {
	return &Jobs{Items: append([]*Job(nil), j.Items...)}
}

func (j *Jobs) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "jobs_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(j.Items); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ReportByCluster groups jobs by primary cluster. Jobs without one are
// reported under "Other".
func (j *Jobs) ReportByCluster() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, job := range j.Items {
		key := job.PrimaryCluster
		if key == "" {
			key = "Other"
		}
		report[key] = append(report[key], map[string]string{
			"id":     job.ID,
			"title":  job.Title,
			"family": job.Family,
			"code":   job.CategoryCode,
			"salary": job.SalaryRange,
			"demand": job.MarketDemand,
		})
	}
	return report
}

// ClusterNames returns the distinct primary clusters, sorted.
func (j *Jobs) ClusterNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, job := range j.Items {
		if job.PrimaryCluster != "" && !seen[job.PrimaryCluster] {
			seen[job.PrimaryCluster] = true
			names = append(names, job.PrimaryCluster)
		}
	}
	sort.Strings(names)
	return names
}
