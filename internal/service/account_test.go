package service

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GreenNest/internal/model"
	"GreenNest/internal/wizard"
	apperrors "GreenNest/pkg/errors"
	"GreenNest/storage/mq"
	"GreenNest/utils"
)

func TestAccountService_Create(t *testing.T) {
	svc, pub := newTestAccounts(t)
	ctx := context.Background()

	account, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	assert.NotZero(t, account.PublicID)
	assert.Equal(t, "mina@example.com", account.Email)
	assert.Equal(t, model.AccountTypeUser, account.Type)
	assert.Equal(t, model.AccountStatusActive, account.Status)
	assert.NotEqual(t, "garden12!", account.PasswordHash)
	assert.True(t, utils.CheckPassword(account.PasswordHash, "garden12!"))

	require.Equal(t, 1, pub.Len())
	evt := pub.events[0]
	assert.Equal(t, mq.ExchangeAccount, evt.Exchange)
	assert.Equal(t, mq.RoutingAccountCreated, evt.RoutingKey)
	msg, ok := evt.Body.(model.AccountCreatedMessage)
	require.True(t, ok)
	assert.Equal(t, strconv.FormatInt(account.PublicID, 10), msg.AccountID)
	assert.Equal(t, evt.MessageID, msg.MessageID)
}

func TestAccountService_Availability(t *testing.T) {
	svc, _ := newTestAccounts(t)
	ctx := context.Background()

	ok, err := svc.EmailAvailable(ctx, "mina@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	ok, err = svc.EmailAvailable(ctx, " MINA@example.com ")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.NicknameAvailable(ctx, "mina")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.NicknameAvailable(ctx, "Fern")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccountService_CreateConflicts(t *testing.T) {
	svc, _ := newTestAccounts(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	dupEmail := validCreateRequest()
	dupEmail.Name = "Fern"
	_, err = svc.Create(ctx, dupEmail)
	assert.ErrorIs(t, err, apperrors.AccountEmailTaken)

	dupNick := validCreateRequest()
	dupNick.Email = "fern@example.com"
	dupNick.Name = "MINA"
	_, err = svc.Create(ctx, dupNick)
	assert.ErrorIs(t, err, apperrors.AccountNicknameTaken)
}

func TestAccountService_CreateRejectsInvalid(t *testing.T) {
	svc, pub := newTestAccounts(t)
	ctx := context.Background()

	noTerms := validCreateRequest()
	noTerms.AgreeTerms = false
	_, err := svc.Create(ctx, noTerms)
	assert.ErrorIs(t, err, apperrors.InvalidRequest)

	badPhone := validCreateRequest()
	badPhone.Phone = "01112345678"
	_, err = svc.Create(ctx, badPhone)
	assert.ErrorIs(t, err, apperrors.InvalidRequest)

	assert.Zero(t, pub.Len())
}

func TestAccountService_PublishFailureKeepsAccount(t *testing.T) {
	svc, pub := newTestAccounts(t)
	pub.err = errors.New("broker down")

	account, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	got, err := svc.GetByPublicID(context.Background(), strconv.FormatInt(account.PublicID, 10))
	require.NoError(t, err)
	assert.Equal(t, account.Email, got.Email)
}

func TestAccountService_GetByPublicID(t *testing.T) {
	svc, _ := newTestAccounts(t)

	_, err := svc.GetByPublicID(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, apperrors.InvalidUserID)

	_, err = svc.GetByPublicID(context.Background(), "42")
	assert.ErrorIs(t, err, apperrors.AccountNotFound)
}

func TestAccountService_Authenticate(t *testing.T) {
	svc, _ := newTestAccounts(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	account, err := svc.Authenticate(ctx, "MINA@example.com", "garden12!")
	require.NoError(t, err)
	assert.Equal(t, "Mina", account.Nickname)

	_, err = svc.Authenticate(ctx, "mina@example.com", "wrong-pass1!")
	assert.ErrorIs(t, err, apperrors.InvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "garden12!")
	assert.ErrorIs(t, err, apperrors.InvalidCredentials)
}

func TestLocalAccountAPI_CreateAccount(t *testing.T) {
	svc, _ := newTestAccounts(t)
	api := NewLocalAccountAPI(svc)
	ctx := context.Background()

	req := wizard.BuildPayload(
		wizard.Step1Data{AgreeTerms: true, AgreePrivacy: true},
		wizard.Step2Data{
			Name: "Mina", Email: "mina@example.com", Password: "garden12!", ConfirmPassword: "garden12!",
			Phone: "01012345678", PostalCode: "04524", Address: "Seoul Jung-gu", AddressDetail: "Apt 101, Room 2",
		},
		wizard.Step3Data{Gender: "female"},
		"",
	)

	resp, err := api.CreateAccount(ctx, req)
	require.NoError(t, err)
	require.True(t, resp.OK)
	assert.Equal(t, "mina@example.com", resp.Item.Email)

	resp, err = api.CreateAccount(ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, apperrors.AccountEmailTaken.Message, resp.Message)

	ok, err := api.CheckNicknameAvailability(ctx, "mina")
	require.NoError(t, err)
	assert.False(t, ok)
}
