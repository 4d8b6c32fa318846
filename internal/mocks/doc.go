package mocks

//go:generate mockgen -destination=store_mock.go -package=mocks github.com/pribylovaa/roster-share/internal/tokenstore Store
//go:generate mockgen -destination=api_mock.go -package=mocks github.com/pribylovaa/roster-share/internal/auth API
//go:generate mockgen -destination=refresher_mock.go -package=mocks github.com/pribylovaa/roster-share/internal/session Refresher
//go:generate mockgen -destination=roster_mock.go -package=mocks github.com/pribylovaa/roster-share/internal/service RosterFetcher
