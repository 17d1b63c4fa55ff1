package services

import (
	"context"
	"strings"

	"dropx/internal/delivery-service/core/domain/dto"
	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/myerrors"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/mylogger"
)

type CatalogService struct {
	mylog  mylogger.Logger
	cities ports.ICityRepo
	routes ports.IRouteProvider
}

func NewCatalogService(log mylogger.Logger, cities ports.ICityRepo, routes ports.IRouteProvider) ports.ICatalogService {
	return &CatalogService{
		mylog:  log,
		cities: cities,
		routes: routes,
	}
}

func (cs *CatalogService) GetOrCreateCity(ctx context.Context, req dto.CityDto) (model.City, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.City{}, myerrors.E(myerrors.KindValidation, "city name must not be empty")
	}

	return cs.cities.GetOrCreate(ctx, model.City{
		Name:      name,
		State:     strings.TrimSpace(req.State),
		Country:   strings.TrimSpace(req.Country),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
}

// ComputeRoute asks the external provider for a driving route. Provider
// failure is non-fatal: the result degrades to distance 0 and the caller's
// cost falls back to its weight component.
func (cs *CatalogService) ComputeRoute(ctx context.Context, origin, dest model.Address) (ports.RouteResult, error) {
	log := cs.mylog.Action("ComputeRoute")

	if (origin.Lat == 0 && origin.Lng == 0) || (dest.Lat == 0 && dest.Lng == 0) {
		log.Debug("addresses carry no coordinates, skipping routing provider")
		return ports.RouteResult{Degraded: true}, nil
	}

	res, err := cs.routes.ComputeRoute(ctx, origin.Lat, origin.Lng, dest.Lat, dest.Lng)
	if err != nil {
		log.Warn("routing provider degraded", "origin", origin.City, "dest", dest.City, "reason", err.Error())
		return ports.RouteResult{Degraded: true}, nil
	}
	return res, nil
}
