package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"example.com/footprint/internal/domain"
	"example.com/footprint/internal/usecase"
)

func (h *Handler) logActivity(w http.ResponseWriter, r *http.Request) {
	var req LogActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, _ := time.Parse(domain.DateLayout, req.Date)

	activity, err := h.svc.LogActivity.Execute(r.Context(), usecase.LogActivityInput{
		Category:     req.Category,
		ActivityType: req.activityType(),
		Value:        req.Value,
		Date:         date,
		Notes:        req.Notes,
		Metadata:     req.Metadata,
		Owner:        identity(r).Owner(),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityView(activity))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", usecase.DefaultPageSize)
	if !ok {
		return
	}
	offset, ok := intParam(w, r, "offset", 0)
	if !ok {
		return
	}

	activities, err := h.svc.ListActivities.Execute(r.Context(), usecase.ListActivitiesInput{
		Owner:  identity(r).Owner(),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := ListActivitiesResponse{Items: make([]ActivityView, 0, len(activities)), Limit: limit, Offset: offset}
	for _, a := range activities {
		resp.Items = append(resp.Items, toActivityView(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.svc.GetActivity.Execute(r.Context(), usecase.GetActivityInput{
		ActivityID: chi.URLParam(r, "id"),
		Caller:     caller(identity(r)),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(activity))
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	var req UpdateActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, _ := time.Parse(domain.DateLayout, req.Date)

	activity, err := h.svc.UpdateActivity.Execute(r.Context(), usecase.UpdateActivityInput{
		ActivityID:   chi.URLParam(r, "id"),
		ActivityType: req.activityType(),
		Value:        req.Value,
		Date:         date,
		Notes:        req.Notes,
		Caller:       caller(identity(r)),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(activity))
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteActivity.Execute(r.Context(), usecase.DeleteActivityInput{
		ActivityID: chi.URLParam(r, "id"),
		Caller:     caller(identity(r)),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) footprintSummary(w http.ResponseWriter, r *http.Request) {
	q, _, ok := footprintQuery(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Summary.Execute(r.Context(), q)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		Period:               res.Period,
		StartDate:            formatDate(res.StartDate),
		EndDate:              formatDate(res.EndDate),
		TotalCO2eKg:          res.TotalCO2eKg,
		ActivityCount:        res.ActivityCount,
		PreviousPeriodCO2eKg: res.PreviousPeriodCO2eKg,
		ChangePercentage:     res.ChangePercentage,
		AverageDailyCO2eKg:   res.AverageDailyCO2eKg,
	})
}

func (h *Handler) footprintBreakdown(w http.ResponseWriter, r *http.Request) {
	q, _, ok := footprintQuery(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Breakdown.Execute(r.Context(), q)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp := BreakdownResponse{Period: res.Period, TotalCO2eKg: res.TotalCO2eKg, Breakdown: make([]BreakdownItemView, 0, len(res.Items))}
	for _, item := range res.Items {
		resp.Breakdown = append(resp.Breakdown, BreakdownItemView(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) footprintTrend(w http.ResponseWriter, r *http.Request) {
	q, granularity, ok := footprintQuery(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Trend.Execute(r.Context(), usecase.TrendInput{FootprintQuery: q, Granularity: granularity})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp := TrendResponse{
		Period:        res.Period,
		Granularity:   res.Granularity,
		TotalCO2eKg:   res.TotalCO2eKg,
		AverageCO2eKg: res.AverageCO2eKg,
		DataPoints:    make([]TrendPointView, 0, len(res.DataPoints)),
	}
	for _, p := range res.DataPoints {
		resp.DataPoints = append(resp.DataPoints, TrendPointView{Date: formatDate(p.Date), CO2eKg: p.CO2eKg, ActivityCount: p.Count})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) compare(w http.ResponseWriter, r *http.Request) {
	params := compareParams{
		RegionCode: strings.TrimSpace(r.URL.Query().Get("region_code")),
		Period:     queryOr(r, "period", "year"),
	}
	if err := validateStruct(params); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	res, err := h.svc.Compare.Execute(r.Context(), usecase.CompareInput{
		Owner:      identity(r).Owner(),
		RegionCode: params.RegionCode,
		Period:     params.Period,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toComparisonResponse(res))
}

func (h *Handler) calculateFlight(w http.ResponseWriter, r *http.Request) {
	var req FlightRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.CalculateFlight.Execute(r.Context(), usecase.CalculateFlightInput{
		OriginIATA:      req.OriginIATA,
		DestinationIATA: req.DestinationIATA,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FlightResponse{
		OriginIATA:      res.Origin.IATACode,
		DestinationIATA: res.Destination.IATACode,
		DistanceKm:      res.DistanceKm,
		FlightType:      res.FlightType,
		IsDomestic:      res.IsDomestic,
		HaulType:        res.HaulType,
	})
}

func (h *Handler) searchAirports(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", usecase.DefaultAirportLimit)
	if !ok {
		return
	}
	airports, err := h.svc.SearchAirports.Execute(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp := AirportSearchResponse{Results: make([]AirportView, 0, len(airports))}
	for _, a := range airports {
		resp.Results = append(resp.Results, toAirportView(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listEmissionFactors(w http.ResponseWriter, r *http.Request) {
	factors, err := h.svc.ListFactors.Execute(r.Context(), strings.TrimSpace(r.URL.Query().Get("category")))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp := make([]EmissionFactorView, 0, len(factors))
	for _, f := range factors {
		resp = append(resp, EmissionFactorView{
			ID:           f.ID,
			Category:     f.Category,
			ActivityType: f.Type,
			Factor:       f.Factor,
			Unit:         f.Unit,
			Source:       optional(f.Source),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.svc.ListRegions.Execute(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp := RegionListResponse{Regions: make([]RegionView, 0, len(regions))}
	for _, region := range regions {
		resp.Regions = append(resp.Regions, RegionView{Code: region.Code, Name: region.Name, AverageAnnualCO2eKg: region.AverageAnnualCO2eKg})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	user, err := h.svc.CurrentUser.Execute(r.Context(), usecase.GetCurrentUserInput{UserID: id.UserID, Email: id.Email})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserView{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt})
}

func (h *Handler) migrateActivities(w http.ResponseWriter, r *http.Request) {
	var req MigrateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	count, err := h.svc.Migrate.Execute(r.Context(), usecase.MigrateActivitiesInput{
		UserID:    identity(r).UserID,
		SessionID: req.SessionID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MigrateResponse{SessionID: req.SessionID, MigratedCount: count})
}

// footprintQuery parses the shared period query parameters. Period defaults to month.
func footprintQuery(w http.ResponseWriter, r *http.Request) (usecase.FootprintQuery, string, bool) {
	params := footprintParams{
		Period:      queryOr(r, "period", "month"),
		StartDate:   r.URL.Query().Get("start_date"),
		EndDate:     r.URL.Query().Get("end_date"),
		Granularity: r.URL.Query().Get("granularity"),
	}
	if err := validateStruct(params); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return usecase.FootprintQuery{}, "", false
	}

	q := usecase.FootprintQuery{Owner: identity(r).Owner(), Period: params.Period}
	if params.StartDate != "" && params.EndDate != "" {
		start, _ := time.Parse(domain.DateLayout, params.StartDate)
		end, _ := time.Parse(domain.DateLayout, params.EndDate)
		if end.Before(start) {
			writeError(w, http.StatusBadRequest, "validation_failed", "end_date: must not be before start_date")
			return usecase.FootprintQuery{}, "", false
		}
		q.StartDate, q.EndDate = &start, &end
	}
	return q, params.Granularity, true
}

func queryOr(r *http.Request, key, fallback string) string {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		return strings.ToLower(v)
	}
	return fallback
}

func intParam(w http.ResponseWriter, r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", key+": must be an integer")
		return 0, false
	}
	return v, true
}
