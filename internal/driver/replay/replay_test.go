package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakelee-bot/google-form-automation/internal/driver"
	"github.com/jakelee-bot/google-form-automation/internal/formdata"
	"github.com/jakelee-bot/google-form-automation/internal/pages"
)

const contactPage = `<html><body>
<div role="heading">Quote</div>
<div role="list">
  <div role="listitem"><div role="heading">Your name *</div><input type="text" aria-label="Your name"></div>
  <div role="listitem"><div role="heading">Your email *</div><input type="email"></div>
  <div role="listitem" style="display: none"><input type="text" aria-label="Hidden"></div>
  <div role="listitem" aria-hidden="true"><input type="text" aria-label="Also hidden"></div>
</div>
<div role="alert">This is a required question</div>
<div role="button"><span><span>Next</span></span></div>
</body></html>`

const donePage = `<html><body><div role="heading">Quote</div><p>Your response has been recorded.</p></body></html>`

func openSession(t *testing.T, d *Driver) *Session {
	t.Helper()
	s, err := d.Open(context.Background(), driver.Options{Headless: true})
	require.NoError(t, err)
	return s.(*Session)
}

func TestSessionLocateAndFill(t *testing.T) {
	ctx := context.Background()
	d := New([]string{contactPage, donePage})
	s := openSession(t, d)
	defer s.Close()

	require.True(t, s.Navigate(ctx, "https://forms.example/quote").OK())
	require.True(t, s.WaitForLoad(ctx).OK())

	el, r := s.Locate(ctx, driver.Selector{Kind: driver.KindText, Label: "your name"})
	require.True(t, r.OK(), r.Error())
	require.True(t, s.Fill(ctx, el, "Jane Lee").OK())

	el, r = s.Locate(ctx, driver.Selector{Kind: driver.KindEmail, Label: "Your email"})
	require.True(t, r.OK(), "question heading is a label source")
	require.True(t, s.Fill(ctx, el, "jane@x.edu").OK())

	_, r = s.Locate(ctx, driver.Selector{Kind: driver.KindText, Label: "hidden"})
	assert.Equal(t, driver.NotFound, r.Outcome)

	visible, r := s.ListVisible(ctx, driver.KindLine)
	require.True(t, r.OK())
	assert.Len(t, visible, 2)

	got, ok := s.Filled("your name")
	assert.True(t, ok)
	assert.Equal(t, "Jane Lee", got)
}

func TestSessionAdvanceAndStaleHandles(t *testing.T) {
	ctx := context.Background()
	s := openSession(t, New([]string{contactPage, donePage}))
	defer s.Close()
	require.True(t, s.Navigate(ctx, "u").OK())

	name, _ := s.Locate(ctx, driver.Selector{Kind: driver.KindText, Label: "your name"})
	next, r := s.Locate(ctx, driver.Selector{Kind: driver.KindButton, Text: "Next"})
	require.True(t, r.OK())
	require.True(t, s.Click(ctx, next).OK())
	assert.Equal(t, 2, s.CurrentPage())

	r = s.Fill(ctx, name, "late")
	assert.Equal(t, driver.Failed, r.Outcome)
	assert.ErrorIs(t, r, driver.ErrStaleElement)

	text, r := s.PageText(ctx)
	require.True(t, r.OK())
	assert.Contains(t, text, "response has been recorded")
}

func TestStickyPageSwallowsFirstAdvance(t *testing.T) {
	ctx := context.Background()
	table := pages.Default()
	license, err := table.Page(pages.PageLicense)
	require.NoError(t, err)

	snaps := Render([]pages.Page{license}, RenderOptions{Sticky: map[pages.PageID]bool{pages.PageLicense: true}})
	s := openSession(t, New(append(snaps[:1], contactPage)))
	defer s.Close()
	require.True(t, s.Navigate(ctx, "u").OK())

	btn, r := s.Locate(ctx, driver.Selector{Kind: driver.KindButton, Text: "Submit"})
	require.True(t, r.OK())
	require.True(t, s.Click(ctx, btn).OK())
	assert.Equal(t, 1, s.CurrentPage())

	btn, _ = s.Locate(ctx, driver.Selector{Kind: driver.KindButton, Text: "Submit"})
	require.True(t, s.Click(ctx, btn).OK())
	assert.Equal(t, 2, s.CurrentPage())
}

func TestDropdownSelectionIsRecorded(t *testing.T) {
	ctx := context.Background()
	table := pages.Default()
	d := formdata.New()
	d.NumPremiumUsers = 20
	s := openSession(t, New(RenderSequence(table, &d, RenderOptions{})))
	defer s.Close()
	require.True(t, s.Navigate(ctx, "u").OK())

	// advance to the license page
	for i := 0; i < 2; i++ {
		btn, r := s.Locate(ctx, driver.Selector{Kind: driver.KindButton, Text: "Next"})
		require.True(t, r.OK())
		require.True(t, s.Click(ctx, btn).OK())
	}

	triggers, r := s.ListVisible(ctx, driver.KindDropdown)
	require.True(t, r.OK())
	require.Len(t, triggers, 2)

	opt, r := s.Locate(ctx, driver.Selector{Kind: driver.KindOption, Value: "16+", Last: true})
	require.True(t, r.OK())
	require.True(t, s.Click(ctx, opt).OK())

	actions := s.Actions()
	last := actions[len(actions)-1]
	assert.Equal(t, "select", last.Op)
	assert.Equal(t, "16+", last.Value)
	assert.Equal(t, 3, last.Page)
}

func TestNavigationFailuresAndClose(t *testing.T) {
	ctx := context.Background()
	d := New([]string{contactPage}, WithNavigationFailures(2))
	s := openSession(t, d)
	assert.Equal(t, 1, d.OpenSessions())

	assert.Equal(t, driver.Failed, s.Navigate(ctx, "u").Outcome)
	assert.Equal(t, driver.Failed, s.Navigate(ctx, "u").Outcome)
	assert.True(t, s.Navigate(ctx, "u").OK())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 0, d.OpenSessions())
	assert.True(t, s.Closed())
	assert.Equal(t, driver.Failed, s.Navigate(ctx, "u").Outcome)
}

func TestWaitForLoadWithoutHeadingTimesOut(t *testing.T) {
	ctx := context.Background()
	s := openSession(t, New([]string{"<html><body><p>loading</p></body></html>"}))
	defer s.Close()
	require.True(t, s.Navigate(ctx, "u").OK())
	assert.Equal(t, driver.Timeout, s.WaitForLoad(ctx).Outcome)
}

func TestFromDirAndScreenshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02_done.html"), []byte(donePage), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01_contact.html"), []byte(contactPage), 0o600))

	d, err := FromDir(dir)
	require.NoError(t, err)
	s := openSession(t, d)
	defer s.Close()

	ctx := context.Background()
	require.True(t, s.Navigate(ctx, "u").OK())
	shot := filepath.Join(dir, "shots", "page1.html")
	require.True(t, s.Screenshot(ctx, shot).OK())

	b, err := os.ReadFile(shot)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Your name")

	_, err = FromDir(t.TempDir())
	assert.Error(t, err)
}

func TestRenderSequenceFollowsBranch(t *testing.T) {
	table := pages.Default()
	d := formdata.New()
	d.NumPremiumUsers = 2

	snaps := RenderSequence(table, &d, RenderOptions{})
	require.Len(t, snaps, 6)
	assert.Contains(t, snaps[3], "Two Users Information")
	assert.Contains(t, snaps[4], ">Submit<")
	assert.Contains(t, snaps[5], ConfirmationText)
}

func TestStickyPageRevealsAlertsAfterAdvance(t *testing.T) {
	ctx := context.Background()
	org, err := pages.Default().Page(pages.PageOrganization)
	require.NoError(t, err)

	snaps := Render([]pages.Page{org}, RenderOptions{
		Sticky: map[pages.PageID]bool{pages.PageOrganization: true},
		Alerts: map[pages.PageID][]string{pages.PageOrganization: {"Pick one"}},
	})
	s := openSession(t, New(snaps))
	defer s.Close()
	require.True(t, s.Navigate(ctx, "u").OK())

	alerts, r := s.ListVisible(ctx, driver.KindAlert)
	require.True(t, r.OK())
	assert.Empty(t, alerts)

	btn, r := s.Locate(ctx, driver.Selector{Kind: driver.KindButton, Text: "Submit"})
	require.True(t, r.OK())
	require.True(t, s.Click(ctx, btn).OK())

	alerts, _ = s.ListVisible(ctx, driver.KindAlert)
	require.Len(t, alerts, 1)
	text, _ := s.Text(ctx, alerts[0])
	assert.Equal(t, "Pick one", text)
}
