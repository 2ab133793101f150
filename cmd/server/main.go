package main

import (
	"crypto/tls"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/example/ladder-rush/internal/directory"
	srv "github.com/example/ladder-rush/internal/server"
)

func main() {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	var (
		httpPort  = flag.String("http-port", "8080", "HTTP port")
		httpsPort = flag.String("https-port", "8443", "HTTPS port")
		certFile  = flag.String("cert", "", "Path to certificate file")
		keyFile   = flag.String("key", "", "Path to private key file")
		tlsOnly   = flag.Bool("tls-only", false, "Only serve HTTPS")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	dir := directory.NewClient(os.Getenv("DIRECTORY_URL"), 5*time.Second, log.With().Str("component", "directory").Logger())

	gs := srv.NewGameServer(srv.Config{
		Directory:   dir,
		Logger:      log.With().Str("component", "server").Logger(),
		LobbyRoomID: os.Getenv("LOBBY_ROOM_ID"),
	})

	r := mux.NewRouter()

	// CORS headers first so health checks and the websocket handshake are
	// never blocked by a preflight.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	r.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws", gs.HandleWS)

	// Debug REST endpoints
	r.HandleFunc("/api/rooms", gs.HandleListRooms).Methods("GET")

	// Determine certificate paths
	var certPath, keyPath string
	if *certFile != "" && *keyFile != "" {
		certPath = *certFile
		keyPath = *keyFile
	} else {
		certPath = "certs/server.crt"
		keyPath = "certs/server.key"
	}

	haveCerts := true
	if _, err := os.Stat(certPath); os.IsNotExist(err) {
		haveCerts = false
	}
	if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		haveCerts = false
	}

	if !haveCerts {
		if *tlsOnly {
			log.Fatal().Str("cert", certPath).Str("key", keyPath).Msg("tls-only mode enabled but certificates not found")
		}
		log.Info().Str("addr", ":"+*httpPort).Msg("certificates not found, serving HTTP only")
		if err := http.ListenAndServe(":"+*httpPort, r); err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
		return
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	go func() {
		httpsAddr := ":" + *httpsPort
		log.Info().Str("addr", httpsAddr).Msg("ladder-rush backend (HTTPS) listening")

		server := &http.Server{
			Addr:      httpsAddr,
			Handler:   r,
			TLSConfig: tlsConfig,
		}
		if err := server.ListenAndServeTLS(certPath, keyPath); err != nil {
			log.Fatal().Err(err).Msg("https server failed")
		}
	}()

	if !*tlsOnly {
		httpAddr := ":" + *httpPort
		log.Info().Str("addr", httpAddr).Msg("ladder-rush backend (HTTP->HTTPS redirect) listening")

		httpRouter := mux.NewRouter()
		httpRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		}).Methods("GET")
		httpRouter.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpsURL := "https://" + r.Host
			if *httpsPort != "443" {
				httpsURL += ":" + *httpsPort
			}
			httpsURL += r.RequestURI
			http.Redirect(w, r, httpsURL, http.StatusMovedPermanently)
		})

		if err := http.ListenAndServe(httpAddr, httpRouter); err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	} else {
		select {}
	}
}
