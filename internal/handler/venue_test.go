package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/repository"
)

type fakeVenues struct {
	owners
	created model.Venue
}

func (f *fakeVenues) Create(_ context.Context, v *model.Venue) error {
	v.ID = 4
	f.created = *v
	return nil
}

func (f *fakeVenues) GetByID(_ context.Context, id uint64) (model.Venue, error) {
	owner, ok := f.owners[id]
	if !ok {
		return model.Venue{}, booking.ErrNotFound
	}
	return model.Venue{ID: id, OwnerID: owner, Name: "Harbour"}, nil
}

func (f *fakeVenues) ListAll(context.Context) ([]model.Venue, error) {
	return []model.Venue{{ID: venueID, Name: "Harbour"}}, nil
}

func newVenueEcho(res *fakeResources, uid uint64) (*echo.Echo, *fakeVenues) {
	venues := &fakeVenues{owners: owners{venueID: ownerID}}
	h := NewVenueHandler(venues, res, quietLog())
	e := echo.New()
	auth := as(uid, model.RoleOwner)
	e.POST("/v1/venues", h.CreateVenue, auth)
	e.GET("/v1/venues", h.ListVenues)
	e.GET("/v1/venues/:id", h.GetVenue)
	e.POST("/v1/resources", h.CreateResource, auth)
	e.GET("/v1/venues/:id/resources", h.ListResources)
	e.PATCH("/v1/resources/:id", h.SetResourceDisabled, auth)
	e.DELETE("/v1/resources/:id", h.DeleteResource, auth)
	return e, venues
}

func tables() *fakeResources {
	return &fakeResources{items: map[uint64]model.Resource{
		3: {ID: 3, VenueID: venueID, Kind: model.ResourceTable, Name: "T3", Capacity: 4},
	}}
}

func TestVenueHandler_CreateVenue(t *testing.T) {
	e, venues := newVenueEcho(tables(), ownerID)

	rec := do(e, http.MethodPost, "/v1/venues", `{"name":"Harbour","address":" Quay 1 "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, uint64(ownerID), venues.created.OwnerID)
	assert.Equal(t, "Quay 1", venues.created.Address)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/venues", `{"name":"  "}`).Code)
}

func TestVenueHandler_GetVenue(t *testing.T) {
	e, _ := newVenueEcho(tables(), ownerID)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/venues/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/venues/9", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/venues", "").Code)
}

func TestVenueHandler_CreateResource(t *testing.T) {
	cases := []struct {
		name   string
		uid    uint64
		body   string
		status int
	}{
		{"table", ownerID, `{"venue_id":1,"kind":"table","name":"T9","capacity":6,"minimum_charge_cents":5000}`, http.StatusCreated},
		{"room", ownerID, `{"venue_id":1,"kind":"ROOM","name":"101","capacity":2,"price_per_night_cents":15000,"amenities":["wifi"]}`, http.StatusCreated},
		{"room without price", ownerID, `{"venue_id":1,"kind":"ROOM","name":"102","capacity":2}`, http.StatusBadRequest},
		{"zero capacity", ownerID, `{"venue_id":1,"kind":"TABLE","name":"T0","capacity":0}`, http.StatusBadRequest},
		{"unknown kind", ownerID, `{"venue_id":1,"kind":"BAR","name":"B","capacity":2}`, http.StatusBadRequest},
		{"foreign venue", 99, `{"venue_id":1,"kind":"TABLE","name":"T9","capacity":6}`, http.StatusForbidden},
		{"missing venue", ownerID, `{"venue_id":5,"kind":"TABLE","name":"T9","capacity":6}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := tables()
			e, _ := newVenueEcho(res, tc.uid)
			rec := do(e, http.MethodPost, "/v1/resources", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.status == http.StatusCreated {
				assert.Equal(t, model.ResourceAvailable, res.created.Status)
				assert.True(t, res.created.Kind.Valid())
			}
		})
	}
}

func TestVenueHandler_CreateResourceDuplicate(t *testing.T) {
	res := tables()
	res.err = repository.ErrConflict
	e, _ := newVenueEcho(res, ownerID)

	rec := do(e, http.MethodPost, "/v1/resources", `{"venue_id":1,"kind":"TABLE","name":"T3","capacity":4}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decode(t, rec)["error"])
}

func TestVenueHandler_ListResources(t *testing.T) {
	e, _ := newVenueEcho(tables(), ownerID)

	rec := do(e, http.MethodGet, "/v1/venues/1/resources?kind=table", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["resources"], 1)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/venues/1/resources?kind=booth", "").Code)
}

func TestVenueHandler_SetResourceDisabled(t *testing.T) {
	res := tables()
	e, _ := newVenueEcho(res, ownerID)

	require.Equal(t, http.StatusOK, do(e, http.MethodPatch, "/v1/resources/3", `{"disabled":true}`).Code)
	assert.True(t, res.disabled[3])
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPatch, "/v1/resources/3", `{}`).Code)

	other, _ := newVenueEcho(res, 99)
	assert.Equal(t, http.StatusForbidden, do(other, http.MethodPatch, "/v1/resources/3", `{"disabled":false}`).Code)
	assert.True(t, res.disabled[3])
}

func TestVenueHandler_DeleteResource(t *testing.T) {
	res := tables()
	e, _ := newVenueEcho(res, ownerID)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/v1/resources/3", "").Code)
	assert.Equal(t, []uint64{3}, res.deleted)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/v1/resources/4", "").Code)

	res.err = repository.ErrResourceInUse
	rec := do(e, http.MethodDelete, "/v1/resources/3", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "resource_in_use", decode(t, rec)["error"])
}
