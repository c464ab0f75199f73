package tracking

import (
	"log/slog"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// GeoResolver maps client IPs to ISO country codes. A missing or unreadable
// database yields an inert resolver; plays are then stored without a country.
type GeoResolver struct {
	db *maxminddb.Reader
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

func NewGeoResolver(dbPath string) (*GeoResolver, error) {
	if dbPath == "" {
		return &GeoResolver{}, nil
	}
	db, err := maxminddb.Open(dbPath)
	if err != nil {
		slog.Warn("tracking: failed to open geoip database, country lookup disabled", "path", dbPath, "error", err)
		return &GeoResolver{}, nil
	}
	slog.Info("tracking: loaded geoip database", "path", dbPath)
	return &GeoResolver{db: db}, nil
}

func (r *GeoResolver) Country(ipStr string) string {
	if r.db == nil || ipStr == "" {
		return ""
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}
	var rec countryRecord
	if err := r.db.Lookup(ip, &rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}

func (r *GeoResolver) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
