package mentor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(ms []Mentor) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Name)
	}
	return out
}

func TestFilter(t *testing.T) {
	dir := DefaultDirectory()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter keeps all", Filter{}, names(dir)},
		{"skill substring", Filter{Skill: "develop"}, []string{"Priya Singh", "Arjun Patel"}},
		{"language substring", Filter{Language: "telu"}, []string{"Kavya Reddy"}},
		{"online only", Filter{OnlineOnly: true}, []string{"Priya Singh", "Kavya Reddy", "Rohit Kumar", "Vikash Singh"}},
		{"search by tag", Filter{Search: "figma"}, []string{"Rohit Kumar"}},
		{"search by bio", Filter{Search: "ANALYTICS"}, []string{"Kavya Reddy"}},
		{"combined", Filter{Language: "hindi", OnlineOnly: true, Search: "singh"}, []string{"Priya Singh", "Vikash Singh"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(tt.filter.Apply(dir)))
		})
	}
}

func TestSkillsAndLanguagesPreserveFirstSeenOrder(t *testing.T) {
	dir := DefaultDirectory()

	assert.Equal(t, []string{
		"Web Development", "Mobile App Development", "Data Science",
		"UI/UX Design", "Digital Marketing", "Photography",
	}, Skills(dir))
	assert.Equal(t, []string{
		"Hindi", "English", "Gujarati", "Telugu", "Punjabi", "Bhojpuri",
	}, Languages(dir))
}

func TestApplyPatchDoesNotAliasSlices(t *testing.T) {
	m := DefaultDirectory()[0]
	online := false
	tags := []string{"Go"}

	got := m.Apply(Patch{IsOnline: &online, Tags: &tags})
	tags[0] = "mutated"

	assert.False(t, got.IsOnline)
	assert.Equal(t, []string{"Go"}, got.Tags)
	assert.True(t, m.IsOnline)
	assert.Equal(t, "Available now", got.Availability)
}
