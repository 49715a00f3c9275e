package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minaamq/Q2time-tracking-system/internal/models"
	"github.com/minaamq/Q2time-tracking-system/pkg/ipcache"
	"github.com/minaamq/Q2time-tracking-system/pkg/tzutil"

	"github.com/sirupsen/logrus"
)

// Адрес-зонд для локальных и приватных клиентов: у них нет
// осмысленной геолокации, подставляем фиксированный внешний IP
const probeIP = "203.192.1.1"

const lookupTimeout = 5 * time.Second

// GeoTimezoneService определяет таймзону и геоданные по IP клиента.
// Цепочка: bbolt-кэш -> ip-api.com -> ipgeolocation.io (при наличии
// ключа) -> таймзона по умолчанию. Любой сбой гасится внутри:
// наружу всегда уходит валидная метка таймзоны.
type GeoTimezoneService struct {
	httpClient *http.Client
	cache      *ipcache.Cache
	defaultTZ  string
	apiKey     string
	logger     *logrus.Logger

	// Базовые URL провайдеров; в тестах подменяются на httptest
	ipapiBaseURL string
	ipgeoBaseURL string
}

func NewGeoTimezoneService(defaultTZ, apiKey string, cache *ipcache.Cache, logger *logrus.Logger) *GeoTimezoneService {
	if defaultTZ == "" || !tzutil.IsValid(defaultTZ) {
		defaultTZ = "UTC"
	}
	return &GeoTimezoneService{
		httpClient:   &http.Client{Timeout: lookupTimeout},
		cache:        cache,
		defaultTZ:    defaultTZ,
		apiKey:       apiKey,
		logger:       logger,
		ipapiBaseURL: "http://ip-api.com",
		ipgeoBaseURL: "https://api.ipgeolocation.io",
	}
}

// NormalizeClientIP подменяет loopback и приватные адреса зондом:
// геолокация по ним бессмысленна
func NormalizeClientIP(ip string) string {
	if ip == "" || ip == "127.0.0.1" || ip == "::1" || ip == "localhost" ||
		strings.HasPrefix(ip, "192.168.") ||
		strings.HasPrefix(ip, "10.") ||
		strings.HasPrefix(ip, "172.") {
		return probeIP
	}
	return ip
}

// Resolve возвращает (таймзона, геоданные) для IP.
// Ошибок не бывает: при любом сбое - таймзона по умолчанию без геоданных.
func (g *GeoTimezoneService) Resolve(ctx context.Context, ip string) (string, *models.Location) {
	ip = NormalizeClientIP(ip)

	if tz, loc, ok := g.fromCache(ip); ok {
		return tz, loc
	}

	if tz, loc, ok := g.fromIPAPI(ctx, ip); ok {
		g.toCache(ip, tz, loc)
		return tz, loc
	}

	if g.apiKey != "" {
		if tz, loc, ok := g.fromIPGeolocation(ctx, ip); ok {
			g.toCache(ip, tz, loc)
			return tz, loc
		}
	}

	g.logger.WithField("ip", ip).Warn("Timezone lookup failed, using default")
	return g.defaultTZ, nil
}

func (g *GeoTimezoneService) fromCache(ip string) (string, *models.Location, bool) {
	if g.cache == nil {
		return "", nil, false
	}

	entry, ok := g.cache.Get(ip)
	if !ok {
		return "", nil, false
	}

	var loc *models.Location
	if len(entry.Location) > 0 {
		loc = &models.Location{}
		if err := json.Unmarshal(entry.Location, loc); err != nil {
			loc = nil
		}
	}

	g.logger.WithFields(logrus.Fields{
		"ip":       ip,
		"timezone": entry.Timezone,
	}).Debug("Timezone resolved from cache")

	return entry.Timezone, loc, true
}

func (g *GeoTimezoneService) toCache(ip, tz string, loc *models.Location) {
	if g.cache == nil {
		return
	}

	entry := &ipcache.Entry{Timezone: tz}
	if loc != nil {
		if raw, err := json.Marshal(loc); err == nil {
			entry.Location = raw
		}
	}

	if err := g.cache.Put(ip, entry); err != nil {
		g.logger.WithError(err).Warn("Failed to cache timezone lookup")
	}
}

// fromIPAPI - бесплатный провайдер ip-api.com, ключ не нужен
func (g *GeoTimezoneService) fromIPAPI(ctx context.Context, ip string) (string, *models.Location, bool) {
	lookupURL := fmt.Sprintf(
		"%s/json/%s?fields=status,timezone,country,regionName,city,lat,lon,isp",
		g.ipapiBaseURL, ip,
	)

	var payload struct {
		Status     string  `json:"status"`
		Timezone   string  `json:"timezone"`
		Country    string  `json:"country"`
		RegionName string  `json:"regionName"`
		City       string  `json:"city"`
		Lat        float64 `json:"lat"`
		Lon        float64 `json:"lon"`
		ISP        string  `json:"isp"`
	}
	if err := g.getJSON(ctx, lookupURL, &payload); err != nil {
		g.logger.WithError(err).WithField("ip", ip).Debug("ip-api.com lookup failed")
		return "", nil, false
	}

	if payload.Status != "success" || payload.Timezone == "" {
		return "", nil, false
	}
	if !tzutil.IsValid(payload.Timezone) {
		g.logger.WithField("timezone", payload.Timezone).Warn("Provider returned unknown timezone")
		return "", nil, false
	}

	return payload.Timezone, &models.Location{
		Country:   payload.Country,
		Region:    payload.RegionName,
		City:      payload.City,
		Latitude:  payload.Lat,
		Longitude: payload.Lon,
		ISP:       payload.ISP,
	}, true
}

// fromIPGeolocation - запасной провайдер ipgeolocation.io, нужен ключ
func (g *GeoTimezoneService) fromIPGeolocation(ctx context.Context, ip string) (string, *models.Location, bool) {
	params := url.Values{}
	params.Set("apiKey", g.apiKey)
	params.Set("ip", ip)
	params.Set("fields", "time_zone,country_name,state_prov,city,latitude,longitude,isp")
	lookupURL := g.ipgeoBaseURL + "/ipgeo?" + params.Encode()

	var payload struct {
		TimeZone struct {
			Name string `json:"name"`
		} `json:"time_zone"`
		CountryName string `json:"country_name"`
		StateProv   string `json:"state_prov"`
		City        string `json:"city"`
		Latitude    string `json:"latitude"`
		Longitude   string `json:"longitude"`
		ISP         string `json:"isp"`
	}
	if err := g.getJSON(ctx, lookupURL, &payload); err != nil {
		g.logger.WithError(err).WithField("ip", ip).Debug("ipgeolocation.io lookup failed")
		return "", nil, false
	}

	if payload.TimeZone.Name == "" || !tzutil.IsValid(payload.TimeZone.Name) {
		return "", nil, false
	}

	return payload.TimeZone.Name, &models.Location{
		Country:   payload.CountryName,
		Region:    payload.StateProv,
		City:      payload.City,
		Latitude:  parseCoord(payload.Latitude),
		Longitude: parseCoord(payload.Longitude),
		ISP:       payload.ISP,
	}, true
}

func (g *GeoTimezoneService) getJSON(ctx context.Context, lookupURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseCoord(s string) float64 {
	var v float64
	fmt.Sscanf(s, "%f", &v)
	return v
}
