package service

import (
	"context"
	stderrors "errors"
	"testing"

	"photoshared-backend/internal/errors"
	"photoshared-backend/internal/identity/identitytest"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRemoveNeverSetProfilePicture(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	idp := new(identitytest.MockIdentityProvider)
	idp.On("UpdatePhotoURL", mock.Anything, mock.Anything, "").Return(nil)
	svc := NewProfileService(store.Users(), newMemBlobs(), idp, nil)
	user := &model.Identity{UID: "u1"}

	require.NoError(t, svc.RemoveProfilePicture(ctx, user))

	profile, err := svc.GetProfile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "", profile.PhotoURL)
	idp.AssertExpectations(t)
}

func TestSetProfilePictureOverwritesFixedPath(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	blobs := newMemBlobs()
	idp := new(identitytest.MockIdentityProvider)
	idp.On("UpdatePhotoURL", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := NewProfileService(store.Users(), blobs, idp, nil)
	user := &model.Identity{UID: "u1"}

	url, err := svc.SetProfilePicture(ctx, user, jpeg)
	require.NoError(t, err)
	_, err = svc.SetProfilePicture(ctx, user, jpeg)
	require.NoError(t, err)

	assert.Equal(t, 1, blobs.count())
	assert.True(t, blobs.has("profilePictures/u1"))
	assert.Equal(t, url, user.PhotoURL)

	doc, err := store.Users().FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, url, doc.PhotoURL)

	require.NoError(t, svc.RemoveProfilePicture(ctx, user))
	assert.Equal(t, 0, blobs.count())
	doc, err = store.Users().FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "", doc.PhotoURL)
}

func TestSetProfilePictureMirrorFailureIsBestEffort(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	idp := new(identitytest.MockIdentityProvider)
	idp.On("UpdatePhotoURL", mock.Anything, mock.Anything, mock.Anything).Return(stderrors.New("identity down"))
	svc := NewProfileService(store.Users(), newMemBlobs(), idp, nil)

	url, err := svc.SetProfilePicture(ctx, &model.Identity{UID: "u1"}, jpeg)
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}

func TestRemoveProfilePictureReleaseFailure(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()
	blobs.deleteErr = stderrors.New("permission denied")
	idp := new(identitytest.MockIdentityProvider)
	svc := NewProfileService(memory.NewStore(nil).Users(), blobs, idp, nil)

	err := svc.RemoveProfilePicture(ctx, &model.Identity{UID: "u1"})
	assert.True(t, errors.IsCode(err, errors.ErrReleaseFailed))
	idp.AssertNotCalled(t, "UpdatePhotoURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetProfileDefaults(t *testing.T) {
	ctx := context.Background()
	svc := NewProfileService(memory.NewStore(nil).Users(), newMemBlobs(), new(identitytest.MockIdentityProvider), nil)

	profile, err := svc.GetProfile(ctx, &model.Identity{UID: "u1", Email: "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultDisplayName, profile.Name)
	assert.Equal(t, "a@b.com", profile.Email)
	assert.Equal(t, "", profile.Bio)
}

func TestGetProfileFallsBackToBlobURL(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()
	require.NoError(t, blobs.Put(ctx, "profilePictures/u1", []byte("x"), "image/png"))
	svc := NewProfileService(memory.NewStore(nil).Users(), blobs, new(identitytest.MockIdentityProvider), nil)

	profile, err := svc.GetProfile(ctx, &model.Identity{UID: "u1", DisplayName: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", profile.Name)
	assert.Equal(t, "https://blobs.test/profilePictures/u1", profile.PhotoURL)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	idp := new(identitytest.MockIdentityProvider)
	idp.On("UpdateDisplayName", mock.Anything, mock.Anything, "Ana").Return(nil)
	idp.On("UpdatePassword", mock.Anything, mock.Anything, "newsecret").Return(nil)
	svc := NewProfileService(store.Users(), newMemBlobs(), idp, nil)
	user := &model.Identity{UID: "u1", Email: "a@b.com", DisplayName: "A"}

	name, bio, password := "Ana", "fotógrafa", "newsecret"
	profile, err := svc.UpdateProfile(ctx, user, ProfileUpdate{Name: &name, Bio: &bio, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "Ana", profile.Name)
	assert.Equal(t, "fotógrafa", profile.Bio)
	idp.AssertExpectations(t)
	idp.AssertNotCalled(t, "UpdateEmail", mock.Anything, mock.Anything, mock.Anything)
}
