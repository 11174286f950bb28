package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"connect3-server/handlers"
	"connect3-server/middleware"
	"connect3-server/services"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, relying on environment")
	}

	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET_KEY environment variable is not set")
	}
	neo4jURI := os.Getenv("NEO4J_URI")
	if neo4jURI == "" {
		logger.Fatal("NEO4J_URI environment variable is not set")
	}

	ctx := context.Background()

	// Neo4j: the driver is the long-lived shared resource; sessions are opened
	// per round trip inside the runner.
	driver, err := neo4j.NewDriverWithContext(neo4jURI,
		neo4j.BasicAuth(os.Getenv("NEO4J_USERNAME"), os.Getenv("NEO4J_PASSWORD"), ""))
	if err != nil {
		logger.Fatal("failed to create neo4j driver", zap.Error(err))
	}
	defer driver.Close(ctx)

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisClient.Close()

	// Services; the storage runner is passed in explicitly, never cached
	// behind a global accessor.
	store := services.NewNeo4jRunner(driver, "neo4j")
	userService := services.NewUserService(store, logger)
	if err := userService.EnsureConstraints(ctx); err != nil {
		logger.Fatal("failed to ensure graph constraints", zap.Error(err))
	}
	graphService := services.NewGraphService(store, userService, logger)
	authService := services.NewAuthService(userService, jwtSecret, logger)
	verifyService := services.NewVerifyService(
		os.Getenv("TWILIO_SID"),
		os.Getenv("TWILIO_AUTH_TOKEN"),
		os.Getenv("TWILIO_PHONEAUTH_SERVICE_SID"),
		redisClient,
		logger,
	)

	authHandler := handlers.NewAuthHandler(authService, verifyService)
	userHandler := handlers.NewUserHandler(userService, authService)
	graphHandler := handlers.NewGraphHandler(graphService)

	r := mux.NewRouter()
	r.Use(middleware.CORSMiddleware([]string{"*"}))
	r.Use(middleware.ErrorMiddleware(logger))

	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Welcome to Connect3"})
	}).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		dbStatus := "ok"
		if err := driver.VerifyConnectivity(req.Context()); err != nil {
			dbStatus = "error"
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"server": "ok", "neo4j_db": dbStatus})
	}).Methods("GET")

	// Auth routes
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/send-code", authHandler.SendCode).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/verify-code", authHandler.VerifyCode).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/signup", authHandler.Signup).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/token", authHandler.Token).Methods("POST", "OPTIONS")

	// Creating (or anchoring) a user needs no session token.
	r.HandleFunc("/users", userHandler.CreateUser).Methods("POST", "OPTIONS")

	// User and graph routes
	userRouter := r.PathPrefix("/users").Subrouter()
	userRouter.Use(middleware.JWTMiddleware(jwtSecret))
	userRouter.HandleFunc("/me", userHandler.Me).Methods("GET", "OPTIONS")
	userRouter.HandleFunc("/graph", graphHandler.EgoGraph).Methods("GET", "OPTIONS")
	userRouter.HandleFunc("/connections", graphHandler.Connections).Methods("GET", "OPTIONS")
	userRouter.HandleFunc("/connect", graphHandler.Connect).Methods("POST", "OPTIONS")
	userRouter.HandleFunc("/{phonenumber}/shortest-path", graphHandler.ShortestPath).Methods("GET", "OPTIONS")
	userRouter.HandleFunc("/{phonenumber}", userHandler.Search).Methods("GET", "OPTIONS")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("server starting", zap.String("addr", ":"+port))
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
