package wizard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "GreenNest/pkg/errors"
)

func newController(api AccountAPI) *Controller {
	v := NewValidator()
	return NewController(v, NewAvailabilityChecker(api, v))
}

func TestController_IsStepUnlocked(t *testing.T) {
	c := newController(&fakeAccountAPI{})

	cases := []struct {
		valid    map[int]bool
		unlocked map[int]bool
	}{
		{map[int]bool{}, map[int]bool{1: true, 2: false, 3: false}},
		{map[int]bool{1: true}, map[int]bool{1: true, 2: true, 3: false}},
		{map[int]bool{2: true}, map[int]bool{1: true, 2: false, 3: false}},
		{map[int]bool{1: true, 2: true}, map[int]bool{1: true, 2: true, 3: true}},
	}

	for _, tc := range cases {
		s, _ := hydrated("w1")
		for step := range tc.valid {
			s.MarkStepValid(step)
		}
		assert.Equal(t, tc.unlocked, c.UnlockedSteps(s), "valid=%v", tc.valid)
	}

	s, _ := hydrated("w1")
	assert.False(t, c.IsStepUnlocked(s, 0))
	assert.False(t, c.IsStepUnlocked(s, 4))
}

func TestController_NavigateTo(t *testing.T) {
	c := newController(&fakeAccountAPI{})

	t.Run("not ready is a no-op", func(t *testing.T) {
		s := New("w1", NewMemoryPersister())
		assert.True(t, c.NavigateTo(s, StepProfile).None())
		assert.Equal(t, FirstStep, s.CurrentStep())
	})

	t.Run("locked step redirects to step 1", func(t *testing.T) {
		s, _ := hydrated("w1")
		nav := c.NavigateTo(s, StepAccount)
		assert.Equal(t, Replace("/signup/step-1"), nav)
	})

	t.Run("redirection skips the guard", func(t *testing.T) {
		s, _ := hydrated("w1")
		s.BeginRedirect("/login")
		assert.True(t, c.NavigateTo(s, StepProfile).None())
	})

	t.Run("unlocked step becomes current", func(t *testing.T) {
		s, _ := hydrated("w1")
		s.MarkStepValid(StepTerms)
		assert.True(t, c.NavigateTo(s, StepAccount).None())
		assert.Equal(t, StepAccount, s.CurrentStep())

		assert.True(t, c.NavigateTo(s, StepTerms).None())
		assert.Equal(t, StepTerms, s.CurrentStep())
	})
}

func TestController_AdvanceStep1Idempotent(t *testing.T) {
	ctx := context.Background()
	c := newController(&fakeAccountAPI{})
	s, p := hydrated("w1")

	out, err := c.Advance(ctx, s, StepTerms, validStep1())
	require.NoError(t, err)
	assert.Equal(t, Push("/signup/step-2"), out.Navigation)
	firstData, firstValid := s.Step1(), s.IsStepValid(StepTerms)

	_, err = c.Advance(ctx, s, StepTerms, validStep1())
	require.NoError(t, err)
	assert.Equal(t, firstData, s.Step1())
	assert.Equal(t, firstValid, s.IsStepValid(StepTerms))
	assert.Equal(t, StepAccount, s.CurrentStep())

	reloaded, err := Open(ctx, "w1", p)
	require.NoError(t, err)
	assert.True(t, reloaded.IsStepValid(StepTerms))
	assert.Equal(t, StepAccount, reloaded.CurrentStep())
}

func TestController_AdvanceValidationFailure(t *testing.T) {
	c := newController(&fakeAccountAPI{})
	s, _ := hydrated("w1")

	out, err := c.Advance(context.Background(), s, StepTerms, Step1Data{AgreeTerms: true})
	assert.ErrorIs(t, err, apperrors.SignupValidationFailed)
	assert.True(t, out.Navigation.None())
	assert.Contains(t, out.FieldErrors, "agreePrivacy")
	assert.Contains(t, s.Session().FieldErrors, "agreePrivacy")
	assert.False(t, s.IsStepValid(StepTerms))
	assert.Equal(t, FirstStep, s.CurrentStep())
}

func TestController_AdvanceLockedStep(t *testing.T) {
	c := newController(&fakeAccountAPI{})
	s, _ := hydrated("w1")

	out, err := c.Advance(context.Background(), s, StepAccount, validStep2())
	assert.ErrorIs(t, err, apperrors.SignupStepLocked)
	assert.Equal(t, Replace("/signup/step-1"), out.Navigation)

	_, err = c.Advance(context.Background(), s, 7, validStep2())
	assert.ErrorIs(t, err, apperrors.SignupStepInvalid)
}

func TestController_AdvanceStep2RequiresAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("unchecked email blocks advance", func(t *testing.T) {
		c := newController(&fakeAccountAPI{})
		s, _ := hydrated("w1")
		s.MarkStepValid(StepTerms)
		c.CheckNickname(ctx, s, "Mina")

		out, err := c.Advance(ctx, s, StepAccount, validStep2())
		assert.ErrorIs(t, err, apperrors.SignupValidationFailed)
		assert.Equal(t, msgEmailNotConfirmed, out.FieldErrors["email"])
		assert.NotContains(t, out.FieldErrors, "name")
		assert.Equal(t, msgEmailNotConfirmed, s.Session().FieldErrors["email"])
		assert.False(t, s.IsStepValid(StepAccount))
		assert.NotEqual(t, StepProfile, s.CurrentStep())
	})

	t.Run("taken nickname blocks advance", func(t *testing.T) {
		api := &fakeAccountAPI{
			nicknameFn: func(ctx context.Context, nickname string) (bool, error) { return false, nil },
		}
		c := newController(api)
		s, _ := hydrated("w1")
		s.MarkStepValid(StepTerms)
		c.CheckEmail(ctx, s, "mina@example.com")
		c.CheckNickname(ctx, s, "Mina")

		out, err := c.Advance(ctx, s, StepAccount, validStep2())
		assert.ErrorIs(t, err, apperrors.SignupValidationFailed)
		assert.Equal(t, msgNicknameTaken, out.FieldErrors["name"])
	})

	t.Run("confirmation must match the submitted value", func(t *testing.T) {
		c := newController(&fakeAccountAPI{})
		s, _ := hydrated("w1")
		s.MarkStepValid(StepTerms)
		c.CheckEmail(ctx, s, "other@example.com")
		c.CheckNickname(ctx, s, "Mina")

		out, err := c.Advance(ctx, s, StepAccount, validStep2())
		assert.ErrorIs(t, err, apperrors.SignupValidationFailed)
		assert.Contains(t, out.FieldErrors, "email")
	})

	t.Run("confirmed values advance", func(t *testing.T) {
		c := newController(&fakeAccountAPI{})
		s, _ := hydrated("w1")
		s.MarkStepValid(StepTerms)
		c.CheckEmail(ctx, s, "mina@example.com")
		c.CheckNickname(ctx, s, "Mina")

		out, err := c.Advance(ctx, s, StepAccount, validStep2())
		require.NoError(t, err)
		assert.Equal(t, Push("/signup/step-3"), out.Navigation)
		assert.True(t, s.IsStepValid(StepAccount))
		assert.Equal(t, validStep2(), s.Step2())
		assert.Equal(t, StepProfile, s.CurrentStep())
		assert.Nil(t, s.Session().FieldErrors)
	})

	t.Run("static errors come first", func(t *testing.T) {
		c := newController(&fakeAccountAPI{})
		s, _ := hydrated("w1")
		s.MarkStepValid(StepTerms)
		d := validStep2()
		d.Phone = "02012345678"

		out, err := c.Advance(ctx, s, StepAccount, d)
		assert.ErrorIs(t, err, apperrors.SignupValidationFailed)
		assert.Contains(t, out.FieldErrors, "phone")
		assert.NotContains(t, out.FieldErrors, "email")
	})
}

func TestController_AdvanceLastStepStays(t *testing.T) {
	c := newController(&fakeAccountAPI{})
	s, _ := hydrated("w1")
	s.MarkStepValid(StepTerms)
	s.MarkStepValid(StepAccount)

	out, err := c.Advance(context.Background(), s, StepProfile, Step3Data{Gender: GenderMale})
	require.NoError(t, err)
	assert.True(t, out.Navigation.None())
	assert.Equal(t, StepProfile, s.CurrentStep())
	assert.Equal(t, GenderMale, s.Step3().Gender)
}

func TestController_Retreat(t *testing.T) {
	ctx := context.Background()
	c := newController(&fakeAccountAPI{})
	s, _ := hydrated("w1")

	out, err := c.Retreat(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, Back(), out.Navigation)

	s.SetCurrentStep(StepProfile)
	out, err = c.Retreat(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, Push("/signup/step-2"), out.Navigation)
	assert.Equal(t, StepAccount, s.CurrentStep())
}

func TestController_CheckEmailFormatGate(t *testing.T) {
	api := &fakeAccountAPI{}
	c := newController(api)
	s, _ := hydrated("w1")

	assert.False(t, c.CheckEmail(context.Background(), s, "bad-email"))
	assert.Zero(t, api.emailCallCount(), "no network call for a malformed email")
	assert.Equal(t, msgEmailFormat, s.Session().FieldErrors["email"])

	assert.True(t, c.CheckEmail(context.Background(), s, "mina@example.com"))
	assert.Equal(t, 1, api.emailCallCount())
	assert.NotContains(t, s.Session().FieldErrors, "email")
}

func TestController_CheckNicknameFormatGate(t *testing.T) {
	api := &fakeAccountAPI{}
	c := newController(api)
	s, _ := hydrated("w1")

	assert.False(t, c.CheckNickname(context.Background(), s, "M"))
	assert.Empty(t, api.nicknameCalls)
	assert.Equal(t, msgNicknameLength, s.Session().FieldErrors["name"])
}
