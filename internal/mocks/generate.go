package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name SnapshotRepository --dir ../domain/leaderboard --output domain/leaderboard --outpkg leaderboardmock --filename snapshot_repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name RankProvider --dir ../domain/leaderboard --output domain/leaderboard --outpkg leaderboardmock --filename rank_provider_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/refreshrun --output domain/refreshrun --outpkg refreshrunmock --filename repository_mock.go
