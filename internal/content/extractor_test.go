package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePage = `<!DOCTYPE html>
<html>
<head>
  <title> FA Cup Final Tickets </title>
  <meta name="Description" content=" Buy FA Cup final tickets online. ">
  <script>var tracking = true;</script>
  <style>.hero { color: red; }</style>
</head>
<body>
  <header><a href="/home">Home</a></header>
  <nav>
    <a href="/nav-only">Nav Link</a>
  </nav>
  <h1>FA Cup Final <b>2026</b></h1>
  <main>
    <h2>Ticket prices</h2>
    <p>Tickets start at 95 pounds. Availability is limited.</p>
    <h3>Hospitality</h3>
    <p>Packages include <a href="/hospitality#boxes">boxes</a> and lounges.</p>
    <h2>How to buy</h2>
    <p>Visit our <a href="https://tickets.example.com/checkout">checkout</a> or
       the <a href="https://other.example.org/away">away site</a>.</p>
    <a href="#top">Back to top</a>
    <a href="mailto:help@example.com">Email us</a>
    <a href="tel:+441234567890">Call</a>
    <a href="javascript:void(0)">Open</a>
    <a href="/hospitality">Hospitality again</a>
  </main>
  <form><input type="text"><button>Go</button></form>
  <footer><a href="/footer-only">Footer Link</a></footer>
  <noscript>Please enable JavaScript.</noscript>
</body>
</html>`

func TestExtract(t *testing.T) {
	t.Parallel()

	got, err := Extract(fixturePage, "https://tickets.example.com/fa-cup-final")
	require.NoError(t, err)

	assert.Equal(t, "FA Cup Final Tickets", got.Title)
	assert.Equal(t, "Buy FA Cup final tickets online.", got.MetaDescription)
	assert.Equal(t, "FA Cup Final 2026", got.H1)

	assert.Equal(t, []Heading{
		{Level: "h1", Text: "FA Cup Final 2026"},
		{Level: "h2", Text: "Ticket prices"},
		{Level: "h2", Text: "How to buy"},
		{Level: "h3", Text: "Hospitality"},
	}, got.Headings)

	assert.Contains(t, got.CleanText, "Tickets start at 95 pounds.")
	assert.NotContains(t, got.CleanText, "tracking", "script bodies must be stripped")
	assert.NotContains(t, got.CleanText, "color: red", "style bodies must be stripped")
	assert.NotContains(t, got.CleanText, "Nav Link", "nav content must be stripped")
	assert.NotContains(t, got.CleanText, "Footer Link", "footer content must be stripped")
	assert.NotContains(t, got.CleanText, "enable JavaScript", "noscript content must be stripped")

	assert.Equal(t, len(strings.Fields(got.CleanText)), got.WordCount)
	assert.Positive(t, got.WordCount)

	// Same-host links only, fragments stripped, nav/footer links excluded,
	// duplicates collapsed in first-seen order.
	assert.Equal(t, []string{
		"https://tickets.example.com/hospitality",
		"https://tickets.example.com/checkout",
	}, got.InternalLinks)
}

func TestExtractNoBody(t *testing.T) {
	t.Parallel()

	got, err := Extract("<p>Fragment only. Short and valid.</p>", "https://example.com/x")
	require.NoError(t, err)
	assert.Contains(t, got.CleanText, "Fragment only.")
	assert.Equal(t, 5, got.WordCount)
}

func TestExtractMissingSignals(t *testing.T) {
	t.Parallel()

	got, err := Extract("<html><body><p>bare text</p></body></html>", "https://example.com/")
	require.NoError(t, err)
	assert.Empty(t, got.Title)
	assert.Empty(t, got.MetaDescription)
	assert.Empty(t, got.H1)
	assert.Empty(t, got.Headings)
	assert.Empty(t, got.InternalLinks)
	assert.Equal(t, 2, got.WordCount)
}

func TestExtractMalformed(t *testing.T) {
	t.Parallel()

	_, err := Extract("", "https://example.com/")
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Extract("   \n\t  ", "https://example.com/")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestExtractDeterministic(t *testing.T) {
	t.Parallel()

	first, err := Extract(fixturePage, "https://tickets.example.com/fa-cup-final")
	require.NoError(t, err)
	second, err := Extract(fixturePage, "https://tickets.example.com/fa-cup-final")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
