package ai

import (
	"embed"
	"text/template"
)

//go:embed prompts/*.md
var promptFS embed.FS

// Prompts holds one named template per analysis step, "<kind>.<step>".
var Prompts = template.Must(template.ParseFS(promptFS, "prompts/*.md"))

// systemPrompts sets the reviewer persona per task kind.
var systemPrompts = map[string]string{
	"cover_letter": "You are a senior recruiter who reviews Korean cover letters (자기소개서) and gives specific, kind, actionable feedback.",
	"job_posting":  "You are a career consultant who reads job postings and explains what the company is really looking for.",
	"company":      "You are an industry analyst who briefs job seekers on a company before an interview.",
}
