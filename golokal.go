// Package golokal keeps a local, persistent mirror of published translations
// fresh against the public translations API.
//
// Cached translations are usable as soon as the cache has been loaded; a
// background refresh and an optional poll loop revalidate them with one
// manifest request plus conditional per-namespace fetches.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/golokal"
//	    "github.com/ZaguanLabs/golokal/cache"
//	)
//
//	func main() {
//	    storage, err := cache.NewFileStorage("/var/cache/myapp")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    client, err := golokal.NewClient(golokal.Config{
//	        APIKey:        os.Getenv("GOLOKAL_API_KEY"),
//	        BaseURL:       "https://translations.example.com",
//	        DefaultLocale: "en",
//	        Namespaces:    []string{"default", "marketing"},
//	        PollInterval:  golokal.DefaultPollInterval,
//	        Storage:       storage,
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer client.Destroy()
//
//	    client.Init(context.Background())
//	    greeting := client.Translations("en", "default")["greeting.hello"]
//	    fmt.Println(golokal.Interpolate(greeting, map[string]any{"name": "Ada"}))
//	}
package golokal
