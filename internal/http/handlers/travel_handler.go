// README: Travel handlers for search, detail, create/edit and delete.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pickmeup/internal/modules/travel"
	"pickmeup/internal/types"
)

type TravelService interface {
	ListTravels(ctx context.Context, p travel.ListParams) (*travel.ListResult, error)
	GetTravel(ctx context.Context, id types.ID) (*travel.Detail, error)
	EditTravel(ctx context.Context, p travel.EditParams) (types.ID, error)
	DeleteTravel(ctx context.Context, id, userID types.ID) error
}

type TravelHandler struct {
	travels TravelService
	log     logrus.FieldLogger
}

func NewTravelHandler(svc TravelService, log logrus.FieldLogger) *TravelHandler {
	return &TravelHandler{travels: svc, log: log.WithField("handler", "travel")}
}

type listTravelsQuery struct {
	FindMode      bool   `form:"find_mode"`
	PendingOnly   bool   `form:"pending_only"`
	Role          string `form:"role" binding:"omitempty,oneof=any driver guest"`
	DepartureDate string `form:"departure_date" binding:"omitempty,datetime=2006-01-02"`

	DepStreet   string `form:"dep_street"`
	DepNumber   string `form:"dep_number"`
	DepCity     string `form:"dep_city"`
	DepProvince string `form:"dep_province"`
	DepRegion   string `form:"dep_region"`

	DstStreet   string `form:"dst_street"`
	DstNumber   string `form:"dst_number"`
	DstCity     string `form:"dst_city"`
	DstProvince string `form:"dst_province"`
	DstRegion   string `form:"dst_region"`
}

func (q listTravelsQuery) params(userID types.ID) travel.ListParams {
	role, _ := travel.ParseRole(q.Role)
	p := travel.ListParams{
		UserID:                       userID,
		IsFindMode:                   q.FindMode,
		ShowOnlyPendingRequestsOwned: q.PendingOnly,
		Role:                         role,
		DepartureLocation:            filterLocation(q.DepStreet, q.DepNumber, q.DepCity, q.DepProvince, q.DepRegion),
		DestinationLocation:          filterLocation(q.DstStreet, q.DstNumber, q.DstCity, q.DstProvince, q.DstRegion),
	}
	if q.DepartureDate != "" {
		if d, err := time.Parse("2006-01-02", q.DepartureDate); err == nil {
			p.DepartureDate = &d
		}
	}
	return p
}

// filterLocation returns nil when no hierarchy field is given.
func filterLocation(street, number, city, province, region string) *types.Location {
	loc := types.Location{Street: street, Number: number, City: city, Province: province, Region: region}.Normalized()
	if loc.Street == "" && loc.Number == "" && !loc.HasHierarchy() {
		return nil
	}
	return &loc
}

func (h *TravelHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var q listTravelsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.travels.ListTravels(c.Request.Context(), q.params(userID))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, toTravelListJSON(res))
}

func (h *TravelHandler) Get(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.travels.GetTravel(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, toTravelDetailJSON(d))
}

func (h *TravelHandler) Create(c *gin.Context) {
	h.save(c, 0)
}

func (h *TravelHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.save(c, id)
}

func (h *TravelHandler) save(c *gin.Context, id types.ID) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var body travelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}
	saved, err := h.travels.EditTravel(c.Request.Context(), travel.EditParams{
		UserID: userID,
		Travel: travel.Travel{
			ID:          id,
			TotalSeats:  body.TotalSeats,
			DepartureAt: body.DepartureAt,
			Departure:   body.Departure.toLocation(),
			Destination: body.Destination.toLocation(),
		},
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	status := http.StatusOK
	if !id.Valid() {
		status = http.StatusCreated
	}
	writeJSON(c, status, gin.H{"id": saved})
}

func (h *TravelHandler) Delete(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.travels.DeleteTravel(c.Request.Context(), id, userID); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
