package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionRequiresEveryDocument(t *testing.T) {
	full := Submission{SelfiePath: "a.jpg", IDCardPath: "b.jpg", IDNumber: "NIN123"}
	require.NoError(t, full.Validate())

	missingSelfie := full
	missingSelfie.SelfiePath = ""
	assert.ErrorIs(t, missingSelfie.Validate(), ErrSelfieRequired)

	missingCard := full
	missingCard.IDCardPath = " "
	assert.ErrorIs(t, missingCard.Validate(), ErrIDCardRequired)

	missingNumber := full
	missingNumber.IDNumber = ""
	assert.ErrorIs(t, missingNumber.Validate(), ErrIDNumberMissing)
}

func TestReviewTracksDecision(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	v, err := New(3, 9, Submission{SelfiePath: "s.png", IDCardPath: "c.png", IDNumber: "1"}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, v.Status)

	v.Reject(" blurry ", now)
	assert.Equal(t, StatusRejected, v.Status)
	assert.Equal(t, "blurry", v.AdminNotes)
	require.NotNil(t, v.ReviewedAt)

	v.Approve(now)
	assert.Equal(t, StatusApproved, v.Status)
	assert.Equal(t, []string{"s.png", "c.png"}, v.Files())
	assert.Equal(t, "c.png", v.Path(DocumentIDCard))
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument("IDCARD")
	require.NoError(t, err)
	assert.Equal(t, DocumentIDCard, doc)

	_, err = ParseDocument("../etc")
	assert.ErrorIs(t, err, ErrUnknownDocument)
}
