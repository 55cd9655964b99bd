package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/contentpilot/backend/internal/model"
	"github.com/contentpilot/backend/internal/utils"
)

// Prompt assembly for the three LLM call sites: the research synthesis, the
// calendar planning call, and the per-item brief generation.

const (
	maxSubjectLen   = 60
	maxAIPromptLen  = 300
	maxCaptionLen   = 500
	maxSynthesisLen = 800
	maxErrorNoteLen = 100

	researchMaxTokens = 1300
	planMaxTokens     = 1800
	briefMaxTokens    = 2000
	captionMaxTokens  = 1200
)

const researchRole = `You condense brand research into a short brief for a social media planner. ` +
	`Review the brand url, the competitor notes and the trend notes, and pull out the points that matter. ` +
	`Drop links, sources and filler. Return plain text only.`

func researchPrompt(project *model.Project, params CampaignParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Brand/product name: %s\n", project.Name)
	fmt.Fprintf(&b, "URL: %s\n", project.URL)
	fmt.Fprintf(&b, "Competitors: %s\n", params.Competitor)
	fmt.Fprintf(&b, "Trend topics: %s\n", params.TrendIssue)
	fmt.Fprintf(&b, "Details: %s\n", utils.Truncate(project.Description, 500))
	return b.String()
}

const planRole = `You are an Instagram marketing expert. Review the brand inputs and produce content subjects. ` +
	`Generate the subjects and dates as JSON following the given constraints. ` +
	`Some inputs may be empty; ignore those.`

// planPrompt asks for exactly count subjects, one per scheduled date. The
// date schedule itself is derived in code; the model sees it so subjects can
// reference seasonality, but its dateList is advisory.
func planPrompt(project *model.Project, params CampaignParams, synthesis string, today time.Time, dates []time.Time, count int) string {
	dateStrs := make([]string, len(dates))
	for i, d := range dates {
		dateStrs[i] = d.Format("2006-01-02")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Brand/product name: %s\n", project.Name)
	fmt.Fprintf(&b, "Category: %s\n", project.Category)
	fmt.Fprintf(&b, "Brand description: %s\n", utils.Truncate(project.Description, 500))
	fmt.Fprintf(&b, "Research summary: %s\n", synthesis)
	fmt.Fprintf(&b, "Essential keywords: %s\n", params.EssentialKeyword)
	fmt.Fprintf(&b, "SNS events to consider: %s\n", params.SnsEvent)
	fmt.Fprintf(&b, "Tone and manner: %s\n", strings.Join(params.ToneMannerList, ", "))
	fmt.Fprintf(&b, "Content directions: %s\n", strings.Join(params.DirectionList, ", "))
	fmt.Fprintf(&b, "\nToday is %s.\n", today.Format("2006-01-02"))
	fmt.Fprintf(&b, "Posting cadence is %d per week; the upload dates are fixed:\n%s\n",
		params.UploadCycle, strings.Join(dateStrs, ", "))
	fmt.Fprintf(&b, `
Produce JSON with keys subjectList and dateList, both arrays of exactly %d entries.
- subjectList: one concise post subject per upload date, matched to the cadence. All posts are image posts.
- dateList: the upload dates above, in the same order.
`, count)
	return b.String()
}

const briefRole = `You are an Instagram marketing expert. Review the inputs and generate the post content. ` +
	`Needed: a prompt for generating the post image, and a caption.

Produce JSON with keys aiPrompt and caption.
- aiPrompt: an image generation prompt written in English, grounded in the subject.
- caption: the post caption, written out as plain prose with hashtags included. ` +
	`Break long captions into paragraphs, and put the hashtag block after two line breaks at the end.`

func briefPrompt(request *model.ContentRequest, subject, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Post subject: %s\n", subject)
	fmt.Fprintf(&b, "Research summary: %s\n", request.SearchResult)
	fmt.Fprintf(&b, "Essential keywords: %s\n", request.EssentialKeyword)
	fmt.Fprintf(&b, "Tone and manner: %s\n", request.ToneMannerList)
	if feedback != "" {
		fmt.Fprintf(&b, "\nRegenerate the content taking this feedback into account:\n%s\n", feedback)
	}
	return b.String()
}

const captionRole = `You are an Instagram marketing expert. Review the inputs and generate the post content.

Produce JSON with a single key caption.
- caption: the post caption, written out as plain prose with hashtags included.`

func captionPrompt(request *model.ContentRequest, item *model.ContentItem, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Post subject: %s\n", item.Subject)
	fmt.Fprintf(&b, "Research summary: %s\n", request.SearchResult)
	fmt.Fprintf(&b, "Essential keywords: %s\n", request.EssentialKeyword)
	fmt.Fprintf(&b, "Tone and manner: %s\n", request.ToneMannerList)
	if item.Caption != nil {
		fmt.Fprintf(&b, "Current caption: %s\n", *item.Caption)
	}
	if feedback != "" {
		fmt.Fprintf(&b, "\nRewrite the caption taking this feedback into account:\n%s\n", feedback)
	}
	return b.String()
}

// LLM response shapes.

type planResponse struct {
	SubjectList []string `json:"subjectList"`
	DateList    []string `json:"dateList"`
}

type briefResponse struct {
	AIPrompt string `json:"aiPrompt"`
	Caption  string `json:"caption"`
}

type captionResponse struct {
	Caption string `json:"caption"`
}
