package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/regattahq/raceboard/internal/race"
)

const noticeBoardHTML = `<html><body>
<div id="notice-board">
  <div class="notice">
    <h3>Racing postponed</h3>
    <p>AP flag is flying. Stand by ashore.</p>
    <span class="author">Race Committee</span>
  </div>
</div>
<table class="protests"><tbody>
  <tr><td>HKG 123 vs GBR 45</td><td>Rule 10</td><td>Hearing 17:00</td></tr>
</tbody></table>
<div class="course-change">
  <h4>Course change race 5</h4>
  <p>Mark 2 moved 200m north.</p>
</div>
<div class="weather-warning">
  <p>Strong wind warning issued for the racing area.</p>
</div>
<div class="announcements">
  <div class="announcement"><p>Prizegiving at 18:00 in the clubhouse.</p></div>
</div>
</body></html>`

func TestParseNoticeBoardAllCategories(t *testing.T) {
	notices := ParseNoticeBoard(mustDoc(t, noticeBoardHTML))
	require.Len(t, notices, 5, "every category extractor contributes")

	byType := make(map[race.NoticeType]NoticeCandidate)
	for _, n := range notices {
		byType[n.Type] = n
	}

	ann := byType[race.NoticeAnnouncement]
	require.Equal(t, "Racing postponed", ann.Title)
	require.Contains(t, ann.Content, "AP flag")
	require.Equal(t, "Race Committee", ann.Author)

	protest := byType[race.NoticeProtest]
	require.Equal(t, "Protest: HKG 123 vs GBR 45", protest.Title)
	require.Equal(t, "HKG 123 vs GBR 45 | Rule 10 | Hearing 17:00", protest.Content)

	course := byType[race.NoticeCourseChange]
	require.Equal(t, "Course change race 5", course.Title)

	weather := byType[race.NoticeWeather]
	require.Contains(t, weather.Content, "Strong wind warning")
	require.Equal(t, weather.Content, weather.Title, "short content doubles as title")

	general := byType[race.NoticeGeneral]
	require.Contains(t, general.Content, "Prizegiving")
}

func TestParseNoticeBoardEmptyPage(t *testing.T) {
	notices := ParseNoticeBoard(mustDoc(t, `<html><body><p>quiet day</p></body></html>`))
	require.Empty(t, notices)
}

func TestNoticeTitleTruncation(t *testing.T) {
	long := make([]byte, 0, 120)
	for i := 0; i < 120; i++ {
		long = append(long, 'x')
	}
	html := `<html><body><div class="notice-item"><p>` + string(long) + `</p></div></body></html>`
	notices := ParseNoticeBoard(mustDoc(t, html))
	require.Len(t, notices, 1)
	require.Len(t, []rune(notices[0].Title), 81, "80 runes plus ellipsis")
}
