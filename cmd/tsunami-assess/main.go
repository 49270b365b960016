// Command tsunami-assess prints a tsunami risk assessment as JSON. It runs the
// assessor locally, or asks a running server when -addr is set.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	internalgrpc "github.com/mr1hm/earthguard/internal/grpc"
	"github.com/mr1hm/earthguard/internal/logging"
	"github.com/mr1hm/earthguard/internal/models"
	"github.com/mr1hm/earthguard/internal/tsunami"
)

func main() {
	_ = godotenv.Load()

	var in models.TsunamiInput
	flag.Float64Var(&in.Magnitude, "magnitude", 0, "earthquake magnitude")
	flag.Float64Var(&in.Depth, "depth", 10, "focal depth in km")
	flag.Float64Var(&in.DistanceKM, "distance", 0, "distance to the coast in km")
	flag.Float64Var(&in.Latitude, "lat", 0, "epicenter latitude")
	flag.Float64Var(&in.Longitude, "lon", 0, "epicenter longitude")
	addr := flag.String("addr", "", "gRPC address of a running server, e.g. localhost:50051")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger := logging.Setup(*level)

	out, err := assess(*addr, in)
	if err != nil {
		logging.Fatalf("assessment failed: %v", err)
	}
	logger.Debug("assessment complete", "risk_level", out.RiskLevel)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func assess(addr string, in models.TsunamiInput) (*models.TsunamiAssessment, error) {
	if addr == "" {
		out, err := tsunami.Assess(in)
		if err != nil {
			return nil, err
		}
		return &out, nil
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return internalgrpc.NewClient(conn).AssessTsunami(ctx, &in)
}
