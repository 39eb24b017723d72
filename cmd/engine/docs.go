package main

//go:generate swag init -g cmd/engine/main.go -o docs

// @title           Prediction Market Engine API
// @version         0.1.0
// @description     Binary YES/NO markets: AMM pricing, outcome token ledger, resolution and claims.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
