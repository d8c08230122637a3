package wizard

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "GreenNest/pkg/errors"
)

// completedWizard 前两步已通过的向导
func completedWizard(t *testing.T) (*Store, *MemoryPersister) {
	t.Helper()
	s, p := hydrated("w1")
	s.putStepData(StepTerms, validStep1())
	s.putStepData(StepAccount, validStep2())
	s.MarkStepValid(StepTerms)
	s.MarkStepValid(StepAccount)
	s.SetCurrentStep(StepProfile)
	require.NoError(t, s.Save(context.Background()))
	return s, p
}

func TestPipeline_SubmitWithoutImageSkipsUpload(t *testing.T) {
	api := &fakeAccountAPI{}
	uploader := &fakeUploader{}
	pipeline := NewPipeline(NewValidator(), api, uploader)
	s, _ := completedWizard(t)

	result, err := pipeline.Submit(context.Background(), s, Step3Data{})
	require.NoError(t, err)

	assert.Equal(t, []SubmitState{SubmitIdle, SubmitValidating, SubmitSubmitting, SubmitSuccess}, result.States)
	assert.False(t, result.Visited(SubmitUploading))
	assert.Empty(t, uploader.files)

	require.Len(t, api.created, 1)
	req := api.created[0]
	assert.Equal(t, "", req.Image)
	assert.Equal(t, "Seoul Jung-gu Apt 101, Room 2", req.Address)
	assert.Equal(t, AccountTypeUser, req.Type)
	assert.Equal(t, "mina@example.com", req.Email)
	assert.True(t, req.AgreeTerms)
	assert.True(t, req.AgreePrivacy)

	assert.True(t, s.Completed())
	assert.False(t, s.Session().IsLoading)
}

func TestPipeline_SubmitWithImage(t *testing.T) {
	api := &fakeAccountAPI{}
	uploader := &fakeUploader{path: "/profiles/abc.png"}
	pipeline := NewPipeline(NewValidator(), api, uploader)
	s, _ := completedWizard(t)

	step3 := Step3Data{
		Image:     &ImageFile{Filename: "me.png", ContentType: "image/png", Data: []byte("png")},
		Gender:    GenderFemale,
		BirthDate: "1994-05-01",
	}
	result, err := pipeline.Submit(context.Background(), s, step3)
	require.NoError(t, err)

	assert.Equal(t, SubmitSuccess, result.Final())
	assert.True(t, result.Visited(SubmitUploading))
	require.Len(t, uploader.files, 1)
	assert.Equal(t, "me.png", uploader.files[0].Filename)

	req := api.created[0]
	assert.Equal(t, "/profiles/abc.png", req.Image)
	assert.Equal(t, AccountExtra{Gender: GenderFemale, BirthDate: "1994-05-01"}, req.Extra)
	assert.True(t, s.IsStepValid(StepProfile))
}

func TestPipeline_InvalidStoredDataAborts(t *testing.T) {
	api := &fakeAccountAPI{}
	pipeline := NewPipeline(NewValidator(), api, &fakeUploader{})
	s, _ := completedWizard(t)
	s.SetStep2(Step2Patch{Phone: ptr("02012345678")})

	result, err := pipeline.Submit(context.Background(), s, Step3Data{})
	assert.ErrorIs(t, err, apperrors.SignupInputInvalid)
	assert.Equal(t, SubmitFailed, result.Final())
	assert.Empty(t, api.created)

	sess := s.Session()
	assert.Equal(t, apperrors.SignupInputInvalid.Message, sess.Error)
	assert.Contains(t, sess.FieldErrors, "phone")
	assert.False(t, sess.IsLoading)
}

func TestPipeline_UploadFailure(t *testing.T) {
	api := &fakeAccountAPI{}
	pipeline := NewPipeline(NewValidator(), api, &fakeUploader{err: errors.New("s3 down")})
	s, _ := completedWizard(t)

	result, err := pipeline.Submit(context.Background(), s, Step3Data{Image: &ImageFile{Filename: "me.png"}})
	assert.ErrorIs(t, err, apperrors.SignupUploadFailed)
	assert.Equal(t, []SubmitState{SubmitIdle, SubmitValidating, SubmitUploading, SubmitFailed}, result.States)
	assert.Empty(t, api.created, "upload must finish before account creation")
	assert.Equal(t, apperrors.SignupUploadFailed.Message, s.Session().Error)
	assert.False(t, s.Completed())
}

func TestPipeline_CreateFailureKeepsWizard(t *testing.T) {
	ctx := context.Background()

	t.Run("server message is surfaced", func(t *testing.T) {
		api := &fakeAccountAPI{
			createFn: func(ctx context.Context, req CreateAccountRequest) (CreateAccountResponse, error) {
				return CreateAccountResponse{OK: false, Message: "This email is already registered"}, nil
			},
		}
		pipeline := NewPipeline(NewValidator(), api, &fakeUploader{})
		s, p := completedWizard(t)

		_, err := pipeline.Submit(ctx, s, Step3Data{})
		assert.ErrorIs(t, err, apperrors.SignupCreateFailed)
		assert.Equal(t, "This email is already registered", s.Session().Error)
		assert.Equal(t, validStep2(), s.Step2())

		reloaded, err := Open(ctx, "w1", p)
		require.NoError(t, err)
		assert.True(t, reloaded.IsStepValid(StepAccount))
	})

	t.Run("default message without server message", func(t *testing.T) {
		api := &fakeAccountAPI{
			createFn: func(ctx context.Context, req CreateAccountRequest) (CreateAccountResponse, error) {
				return CreateAccountResponse{}, errors.New("timeout")
			},
		}
		pipeline := NewPipeline(NewValidator(), api, &fakeUploader{})
		s, _ := completedWizard(t)

		_, err := pipeline.Submit(ctx, s, Step3Data{})
		assert.ErrorIs(t, err, apperrors.SignupCreateFailed)
		assert.Equal(t, apperrors.SignupCreateFailed.Message, s.Session().Error)
		assert.Len(t, api.created, 1, "no automatic retries")
	})

	t.Run("panic ends in failed state", func(t *testing.T) {
		api := &fakeAccountAPI{
			createFn: func(ctx context.Context, req CreateAccountRequest) (CreateAccountResponse, error) {
				panic("nil map")
			},
		}
		pipeline := NewPipeline(NewValidator(), api, &fakeUploader{})
		s, _ := completedWizard(t)

		result, err := pipeline.Submit(ctx, s, Step3Data{})
		assert.ErrorIs(t, err, apperrors.SignupCreateFailed)
		assert.Equal(t, SubmitFailed, result.Final())
		assert.False(t, s.Session().IsLoading)
	})
}

func TestPipeline_RejectsConcurrentSubmit(t *testing.T) {
	pipeline := NewPipeline(NewValidator(), &fakeAccountAPI{}, &fakeUploader{})
	s, _ := completedWizard(t)
	s.SetLoading(true)

	_, err := pipeline.Submit(context.Background(), s, Step3Data{})
	assert.ErrorIs(t, err, apperrors.SignupInProgress)
}

func TestPipeline_Finalize(t *testing.T) {
	ctx := context.Background()
	sched := &manualScheduler{}
	pipeline := NewPipeline(NewValidator(), &fakeAccountAPI{}, &fakeUploader{},
		WithScheduler(sched.schedule),
		WithSettleDelay(1500*time.Millisecond),
	)
	s, p := completedWizard(t)

	_, err := pipeline.Submit(ctx, s, Step3Data{})
	require.NoError(t, err)

	nav, err := pipeline.Finalize(ctx, s)
	require.NoError(t, err)

	assert.Equal(t, NavReplace, nav.Mode)
	assert.Equal(t, "/login?message="+url.QueryEscape(CompletionMessage), nav.Path)

	assert.True(t, s.Redirecting(), "redirect flag is set immediately")
	assert.Equal(t, nav.Path, s.Redirect().Target)
	assert.Equal(t, Step2Data{}, s.Step2())
	assert.False(t, s.IsStepValid(StepTerms))
	assert.False(t, s.Completed())
	assert.Equal(t, 0, p.Len())

	c := newController(&fakeAccountAPI{})
	assert.True(t, c.NavigateTo(s, StepProfile).None(), "guard is skipped while redirecting")

	require.Len(t, sched.delays, 1)
	assert.Equal(t, 1500*time.Millisecond, sched.delays[0])

	sched.runAll()
	assert.False(t, s.Redirecting())
	assert.Equal(t, Replace("/signup/step-1"), c.NavigateTo(s, StepProfile))
}

func TestPipeline_FinalizeRequiresCompletion(t *testing.T) {
	pipeline := NewPipeline(NewValidator(), &fakeAccountAPI{}, &fakeUploader{})
	s, _ := completedWizard(t)

	_, err := pipeline.Finalize(context.Background(), s)
	assert.ErrorIs(t, err, apperrors.SignupNotCompleted)
	assert.False(t, s.Redirecting())
}

func TestPipeline_DefaultSettleUsesTimer(t *testing.T) {
	pipeline := NewPipeline(NewValidator(), &fakeAccountAPI{}, &fakeUploader{}, WithSettleDelay(10*time.Millisecond))
	s, _ := completedWizard(t)

	_, err := pipeline.Submit(context.Background(), s, Step3Data{})
	require.NoError(t, err)
	_, err = pipeline.Finalize(context.Background(), s)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return !s.Redirecting() }, time.Second, 5*time.Millisecond)
}

func TestPipeline_LoginPath(t *testing.T) {
	pipeline := NewPipeline(NewValidator(), &fakeAccountAPI{}, &fakeUploader{}, WithLoginPath("/account/login"))
	target, err := url.Parse(pipeline.LoginTarget())
	require.NoError(t, err)
	assert.Equal(t, "/account/login", target.Path)
	assert.Equal(t, CompletionMessage, target.Query().Get("message"))
}

func TestPipeline_UploadSkipsAccountGuard(t *testing.T) {
	guard := &countingGuard{}
	api := &fakeAccountAPI{}
	pipeline := NewPipeline(NewValidator(), api, &fakeUploader{err: apperrors.UploadUnsupported}, WithPipelineGuard(guard))
	s, _ := completedWizard(t)

	_, err := pipeline.Submit(context.Background(), s, Step3Data{Image: &ImageFile{Filename: "notes.txt", Data: []byte("hello")}})
	assert.ErrorIs(t, err, apperrors.SignupUploadFailed)
	assert.Zero(t, guard.count())
	assert.Empty(t, api.created)

	pipeline = NewPipeline(NewValidator(), api, &fakeUploader{}, WithPipelineGuard(guard))
	s, _ = completedWizard(t)
	_, err = pipeline.Submit(context.Background(), s, Step3Data{Image: &ImageFile{Filename: "me.png", Data: []byte("png")}})
	require.NoError(t, err)
	assert.Equal(t, 1, guard.count())
}

func TestPipeline_ValidatesStepsInOrder(t *testing.T) {
	pipeline := NewPipeline(NewValidator(), &fakeAccountAPI{}, &fakeUploader{})

	for i := 0; i < 50; i++ {
		s, _ := completedWizard(t)
		s.putStepData(StepTerms, Step1Data{AgreeTerms: true})
		s.SetStep2(Step2Patch{Phone: ptr("02012345678")})

		_, err := pipeline.Submit(context.Background(), s, Step3Data{})
		require.ErrorIs(t, err, apperrors.SignupInputInvalid)

		fields := s.Session().FieldErrors
		require.Contains(t, fields, "agreePrivacy")
		require.NotContains(t, fields, "phone")
	}
}
