package inquiry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/socratic/internal/inquiry"
	"github.com/scrypster/socratic/pkg/types"
)

var (
	good = inquiry.Assessment{Comprehension: 0.8, Depth: inquiry.DepthModerate}
	weak = inquiry.Assessment{Comprehension: 0.3, Depth: inquiry.DepthModerate}
)

func presented(t *testing.T) *inquiry.Inquiry {
	t.Helper()
	in := inquiry.NewInquiry("i1", "s1", inquiry.Question{Text: "Why?"}, types.Context{Triggers: []string{"x"}}, fixedNow)
	require.Equal(t, types.InquiryActive, in.State)
	require.NoError(t, in.Transition(types.InquiryAwaitingResponse, fixedNow))
	return in
}

func TestNeedsFollowUp(t *testing.T) {
	assert.False(t, inquiry.NeedsFollowUp(good, 1))
	assert.True(t, inquiry.NeedsFollowUp(weak, 1))
	assert.True(t, inquiry.NeedsFollowUp(inquiry.Assessment{Comprehension: 0.9, Misconceptions: []string{"up/down"}}, 2))
	assert.True(t, inquiry.NeedsFollowUp(inquiry.Assessment{Comprehension: 0.9, Depth: inquiry.DepthSurface}, 3))
	assert.False(t, inquiry.NeedsFollowUp(weak, inquiry.MaxExchanges+1))
}

func TestFollowUpText(t *testing.T) {
	assert.Contains(t, inquiry.FollowUpText(inquiry.Assessment{Misconceptions: []string{"x"}}, "gravity"), "evidence about gravity")
	assert.Contains(t, inquiry.FollowUpText(weak, "gravity"), "own words")
	assert.Contains(t, inquiry.FollowUpText(inquiry.Assessment{Comprehension: 0.9, Depth: inquiry.DepthSurface}, ""), "this topic")
}

func TestRespondCompletes(t *testing.T) {
	in := presented(t)
	later := fixedNow.Add(time.Minute)

	followUp, err := in.Respond("Objects fall because gravity pulls them", good, "gravity", later)

	require.NoError(t, err)
	assert.Empty(t, followUp)
	assert.Equal(t, types.InquiryCompleted, in.State)
	assert.Equal(t, later, in.CompletedAt)
	require.Len(t, in.Exchanges, 1)
	assert.Empty(t, in.Exchanges[0].FollowUp)
}

func TestRespondFollowUpChain(t *testing.T) {
	in := presented(t)

	for i := 1; i <= inquiry.MaxExchanges; i++ {
		followUp, err := in.Respond("dunno", weak, "gravity", fixedNow)
		require.NoError(t, err)
		assert.NotEmpty(t, followUp, "exchange %d", i)
		assert.Equal(t, types.InquiryFollowUp, in.State)
	}

	followUp, err := in.Respond("still dunno", weak, "gravity", fixedNow)
	require.NoError(t, err)
	assert.Empty(t, followUp)
	assert.Equal(t, types.InquiryCompleted, in.State)
	assert.Len(t, in.Exchanges, inquiry.MaxExchanges+1)
}

func TestRespondRejectsWrongState(t *testing.T) {
	in := inquiry.NewInquiry("i1", "s1", inquiry.Question{}, types.Context{}, fixedNow)

	_, err := in.Respond("early", good, "", fixedNow)
	assert.True(t, errors.Is(err, types.ErrInvalidInput))

	require.NoError(t, in.Transition(types.InquiryAwaitingResponse, fixedNow))
	_, err = in.Respond("answer", good, "", fixedNow)
	require.NoError(t, err)

	_, err = in.Respond("again", good, "", fixedNow)
	assert.Error(t, err)
	assert.Len(t, in.Exchanges, 1)
}

func TestTransitionRejectsInvalid(t *testing.T) {
	in := inquiry.NewInquiry("i1", "s1", inquiry.Question{}, types.Context{}, fixedNow)

	err := in.Transition(types.InquiryCompleted, fixedNow)

	assert.Error(t, err)
	assert.Equal(t, types.InquiryActive, in.State)
}

func TestAbandon(t *testing.T) {
	in := presented(t)
	later := fixedNow.Add(time.Hour)

	assert.True(t, in.Abandon(later))
	assert.Equal(t, types.InquiryShutdownIncomplete, in.State)
	assert.Equal(t, later, in.CompletedAt)
	assert.False(t, in.Abandon(later), "terminal inquiries stay put")

	done := presented(t)
	_, err := done.Respond("fine", good, "", fixedNow)
	require.NoError(t, err)
	assert.False(t, done.Abandon(later))
	assert.Equal(t, types.InquiryCompleted, done.State)
}

func TestNewInquiryCopiesSnapshot(t *testing.T) {
	c := types.Context{Triggers: []string{"a"}}
	in := inquiry.NewInquiry("i1", "s1", inquiry.Question{}, c, fixedNow)

	c.Triggers[0] = "b"

	assert.Equal(t, []string{"a"}, in.Snapshot.Triggers)
}
