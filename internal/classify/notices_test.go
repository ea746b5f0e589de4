package classify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/regattahq/raceboard/internal/race"
)

func TestNoticePriority(t *testing.T) {
	cases := []struct {
		name    string
		typ     race.NoticeType
		title   string
		content string
		want    race.NoticePriority
	}{
		{"emergency keyword", race.NoticeAnnouncement, "URGENT: abandon race", "", race.PriorityEmergency},
		{"high keyword", race.NoticeAnnouncement, "Important update", "", race.PriorityHigh},
		{"normal keyword", race.NoticeCourseChange, "Course change", "mark 2 moved", race.PriorityNormal},
		{"no keyword floors to info", race.NoticeGeneral, "Prizegiving", "clubhouse at 18:00", race.PriorityInfo},
		{"content is scanned too", race.NoticeProtest, "Protest 7", "hearing results, immediate attendance", race.PriorityEmergency},
		{"weather warning escalates", race.NoticeWeather, "Weather", "gale warning in force", race.PriorityEmergency},
		{"weather strong is high", race.NoticeWeather, "Weather", "strong breeze expected", race.PriorityHigh},
		{"weather floor is normal", race.NoticeWeather, "Weather", "light airs tomorrow", race.PriorityNormal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NoticePriority(tc.typ, tc.title, tc.content))
		})
	}
}

func TestTags(t *testing.T) {
	tags := Tags("Racing postponed", "new schedule follows; watch the wind forecast")
	require.Equal(t, []string{"schedule", "weather"}, tags)

	require.Equal(t, []string{"general"}, Tags("Prizegiving", "clubhouse at 18:00"))

	// A keyword mapping to an already-emitted tag must not duplicate it.
	tags = Tags("Protest hearing", "protest room 2")
	require.Equal(t, []string{"protest"}, tags)
}
