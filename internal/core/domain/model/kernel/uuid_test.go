package kernel_test

import (
	"encoding/json"
	"testing"

	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUUID_IsUniqueAndValid(t *testing.T) {
	a, b := kernel.NewUUID(), kernel.NewUUID()

	require.NoError(t, a.Validate())
	assert.False(t, a.IsEqual(b))
	assert.Equal(t, uuid.Version(4), a.Bytes().Version())
}

func TestUUIDFromString(t *testing.T) {
	const canonical = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "canonical", input: canonical},
		{name: "urn", input: "urn:uuid:" + canonical},
		{name: "braced", input: "{" + canonical + "}"},
		{name: "garbage", input: "courier-1", wantErr: errs.ErrValueIsInvalid},
		{name: "empty", input: "", wantErr: errs.ErrValueIsInvalid},
		{name: "nil uuid", input: uuid.Nil.String(), wantErr: errs.ErrValueIsRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := kernel.UUIDFromString(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, canonical, id.String())
		})
	}
}

func TestUUIDFromBytes(t *testing.T) {
	src := kernel.NewUUID()
	raw := src.Bytes()

	id, err := kernel.UUIDFromBytes(raw[:])
	require.NoError(t, err)
	assert.True(t, id.IsEqual(src))

	_, err = kernel.UUIDFromBytes(raw[:15])
	assert.Error(t, err)

	_, err = kernel.UUIDFromBytes(make([]byte, 16))
	assert.ErrorIs(t, err, errs.ErrValueIsRequired)
}

func TestUUID_ZeroValueIsInvalid(t *testing.T) {
	var id kernel.UUID
	assert.ErrorIs(t, id.Validate(), kernel.ErrUUIDIsNotConstructed)
}

func TestUUID_Compare(t *testing.T) {
	low := kernel.MustUUIDFromString("00000000-0000-4000-8000-000000000001")
	high := kernel.MustUUIDFromString("00000000-0000-4000-8000-000000000002")

	assert.Negative(t, low.Compare(high))
	assert.Positive(t, high.Compare(low))
	assert.Zero(t, low.Compare(low))
}

func TestUUID_JSON(t *testing.T) {
	type event struct {
		PackageID kernel.UUID `json:"package_id"`
	}
	in := event{PackageID: kernel.MustUUIDFromString("6ba7b810-9dad-11d1-80b4-00c04fd430c8")}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"package_id":"6ba7b810-9dad-11d1-80b4-00c04fd430c8"}`, string(data))

	var out event
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.PackageID.IsEqual(in.PackageID))

	assert.Error(t, json.Unmarshal([]byte(`{"package_id":"nope"}`), &out))
}
