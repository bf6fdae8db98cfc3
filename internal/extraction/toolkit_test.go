package extraction

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/meetextract/internal/entities"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

func TestChain_FirstMatchWins(t *testing.T) {
	c := Chain[string]{
		regexStrategy("digits", regexp.MustCompile(`(\d+)`), 1),
		fixedStrategy("any", regexp.MustCompile(`.`), "fallback"),
	}

	v, name, ok := c.First("order 66")
	require.True(t, ok)
	assert.Equal(t, "66", v)
	assert.Equal(t, "digits", name)

	v, name, ok = c.First("none")
	require.True(t, ok)
	assert.Equal(t, "fallback", v)
	assert.Equal(t, "any", name)

	_, _, ok = c.First("")
	assert.False(t, ok)
	assert.Empty(t, c.Value(""))
}

func TestContextWindow(t *testing.T) {
	s := segs("alpha one", "bravo two", "charlie three", "delta four", "echo five")

	assert.Equal(t, "bravo two charlie three delta four", ContextWindow(s, "charlie", 1))
	assert.Equal(t, "alpha one bravo two", ContextWindow(s, "alpha", 1))
	assert.Equal(t, "delta four echo five", ContextWindow(s, "echo five", 1))
	assert.Equal(t, "not present", ContextWindow(s, "not present", 3))
}

func TestIsNameLike(t *testing.T) {
	tests := map[string]bool{
		"John":                 true,
		"John Smith":           true,
		"Mary Ann Lee":         true,
		"Sarah Jane Lee Smith": false,
		"A":                    false,
		"I":                    false,
		"We":                   false,
		"the team":             false,
		"":                     false,
	}
	for in, want := range tests {
		assert.Equal(t, want, IsNameLike(in), in)
	}
}

func TestResolveOwner(t *testing.T) {
	tests := []struct {
		name     string
		segments []transcript.Segment
		ents     EntityService
		want     string
	}{
		{
			name:     "entity in assignment form",
			segments: segs("Priya will draft the memo."),
			ents:     staticEntities{{Text: "Priya", Type: "PER"}},
			want:     "Priya",
		},
		{
			name: "entity assignment in neighbouring segment",
			segments: []transcript.Segment{
				{Text: "Priya will handle the vendor side."},
				{Text: "Send them the signed contract draft."},
			},
			ents: staticEntities{{Text: "Priya", Type: "PER"}},
			want: "Priya",
		},
		{
			name: "entity assignment in origin segment wins over window",
			segments: []transcript.Segment{
				{Text: "Priya will handle the vendor side."},
				{Text: "Omar will send the signed contract draft."},
			},
			ents: staticEntities{{Text: "Priya", Type: "PER"}, {Text: "Omar", Type: "PER"}},
			want: "Omar",
		},
		{
			name:     "addressed request",
			segments: segs("John, can you send the report by Friday?"),
			want:     "John",
		},
		{
			name:     "greeting before name",
			segments: segs("Hey Mia, could you book the room?"),
			want:     "Mia",
		},
		{
			name:     "assigned to",
			segments: segs("The migration is assigned to Carla Gomez."),
			want:     "Carla Gomez",
		},
		{
			name:     "responsible for",
			segments: segs("Dev is responsible for the rollout."),
			want:     "Dev",
		},
		{
			name:     "first person",
			segments: spoken("Ana", "I will update the dashboard."),
			want:     "Ana",
		},
		{
			name: "name in preceding assignment",
			segments: []transcript.Segment{
				{Speaker: "Lee", Text: "Marco, can you take the vendor follow-up?"},
				{Text: "Sounds good, that can start next week."},
			},
			want: "Marco",
		},
		{
			name: "speaker of preceding assignment",
			segments: []transcript.Segment{
				{Speaker: "Lee", Text: "Please take care of the vendor contract."},
				{Text: "The contract renewal needs review."},
			},
			want: "Lee",
		},
		{
			name:     "speaker fallback",
			segments: spoken("Kim", "The deck needs another pass."),
			want:     "Kim",
		},
		{
			name:     "nobody",
			segments: segs("The deck needs another pass."),
			want:     Unclear,
		},
		{
			name:     "entity service failure falls through",
			segments: segs("John, can you send the report?"),
			ents:     failingEntities{},
			want:     "John",
		},
		{
			name:     "entity service panic falls through",
			segments: segs("John, can you send the report?"),
			ents:     failingEntities{panic: true},
			want:     "John",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRun(tt.segments, nil, tt.ents)
			last := len(tt.segments) - 1
			seg := tt.segments[last]
			window := r.window(last, r.th.ActionWindow, seg.Text)
			assert.Equal(t, tt.want, r.resolveOwner(seg.Text, seg.Speaker, last, window))
		})
	}
}

func TestResolveOwner_RecordsEntityFailures(t *testing.T) {
	r := testRun(segs("John, can you send the report?"), nil, failingEntities{})
	r.resolveOwner("John, can you send the report?", "", 0, "")
	assert.Equal(t, map[FailureReason]int{ReasonCallFailed: 1}, r.dl.summary())
}

func TestEntityRecognizerFeedsOwnerResolution(t *testing.T) {
	r := testRun(segs("Sarah Chen should own the vendor escalation."), nil, entities.NewRuleBased())
	assert.Equal(t, "Sarah Chen", r.resolveOwner("Sarah Chen should own the vendor escalation.", "", 0, ""))
}

func TestExtractDueDate(t *testing.T) {
	tests := map[string]string{
		"send the report by Friday":             "Friday",
		"have it ready by next Monday":          "next Monday",
		"before end of day tomorrow please":     "end of day tomorrow",
		"wrap up by end of the week":            "end of the week",
		"finish it next quarter":                "next quarter",
		"the draft is due 3/15":                 "3/15",
		"ship on March 3rd":                     "March 3rd",
		"get feedback within two weeks":         "within two weeks",
		"the deadline is the product review":    "the product review",
		"we can sync on Thursday":               "Thursday",
		"no dates mentioned in this one at all": "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExtractDueDate(in), in)
	}
}

func TestDueDate_PrefersSentence(t *testing.T) {
	assert.Equal(t, "Friday", dueDate("send it by Friday", "by next Monday at the latest"))
	assert.Equal(t, "next Monday", dueDate("send it", "by next Monday at the latest"))
}

func TestCategorize(t *testing.T) {
	tests := map[string]string{
		"There's a risk of delay in the security audit.": CategoryTimeline,
		"Budget and headcount are tight this year.":      CategoryResource,
		"The GDPR data migration needs care.":            CategoryData,
		"The api approval is pending.":                   CategoryProcess,
		"API latency and the outage worry me.":           CategoryTechnical,
		"Nothing relevant here.":                         CategoryOther,
	}
	for in, want := range tests {
		assert.Equal(t, want, Categorize(in), in)
	}
}

func TestPriorities(t *testing.T) {
	assert.Equal(t, PriorityHigh, ActionPriority("This is urgent"))
	assert.Equal(t, PriorityLow, ActionPriority("low priority cleanup"))
	assert.Equal(t, PriorityLow, ActionPriority("nice to have but critical"))
	assert.Equal(t, PriorityMedium, ActionPriority("update the docs"))

	assert.Equal(t, RiskHigh, RiskPriority("a critical outage"))
	assert.Equal(t, RiskLow, RiskPriority("a minor glitch"))
	assert.Equal(t, RiskMedium, RiskPriority("some concern"))
}

func TestSplitCompound(t *testing.T) {
	t.Run("two action clauses", func(t *testing.T) {
		got := SplitCompound("I will update the dashboard and coordinate with Sarah.")
		assert.Equal(t, []Clause{
			{Text: "I will update the dashboard"},
			{Text: "coordinate with Sarah"},
		}, got)
	})
	t.Run("named subjects", func(t *testing.T) {
		got := SplitCompound("Sarah will draft the memo and Tom will review it")
		require.Len(t, got, 2)
		assert.Equal(t, "Sarah", got[0].Owner)
		assert.Equal(t, "Tom", got[1].Owner)
	})
	t.Run("three clauses with comma", func(t *testing.T) {
		got := SplitCompound("Send the deck, and schedule the review, and book the room")
		assert.Len(t, got, 3)
	})
	t.Run("verbless part attaches to previous clause", func(t *testing.T) {
		assert.Nil(t, SplitCompound("Update the docs and the changelog"))
	})
	t.Run("no action verbs", func(t *testing.T) {
		assert.Nil(t, SplitCompound("Bread and butter are on the table"))
	})
	t.Run("no connector", func(t *testing.T) {
		assert.Nil(t, SplitCompound("Update the docs"))
	})
}

func TestTextHelpers(t *testing.T) {
	assert.Equal(t, "there's a risk", stripFillers("So, um, there's a risk"))
	assert.Equal(t, "Hello", capitalize("hello"))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "send the", prefixKey("Send  the report", 8))
	assert.Equal(t, []string{"A plan", "Other"}, appendUnique([]string{"A plan"}, 50, "a PLAN", "Other", ""))
}
