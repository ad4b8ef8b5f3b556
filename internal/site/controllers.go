package site

import (
	"fmt"
	"html"
	"runtime"

	"github.com/BolvicBolvicovic/feather/pkg/controller"
	"github.com/BolvicBolvicovic/feather/pkg/plug"
	"github.com/BolvicBolvicovic/feather/pkg/session"
)

// Index greets the session user and counts visits.
func Index(c plug.Conn) plug.Conn {
	visits := 0
	if v, ok := c.GetSession("visits"); ok {
		visits = toInt(v)
	}
	visits++
	c = c.PutSession("visits", visits)
	who := "stranger"
	if u, ok := c.GetSession("user"); ok {
		who = fmt.Sprint(u)
	}
	return controller.HTML(c, fmt.Sprintf("<h1>Hello, %s</h1><p>visit %d</p>", html.EscapeString(who), visits))
}

// session values restored from the store come back as float64.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func Hello(c plug.Conn) plug.Conn {
	p, _ := c.PathParams()
	name, _ := p.Get("name")
	return controller.Text(c, "hello "+name)
}

// Login stores the posted user in a renewed session.
func Login(c plug.Conn) plug.Conn {
	user, ok := c.Params().Get("user")
	if !ok || user == "" {
		return controller.Error(c, 422, "user is required")
	}
	next, err := c.PutSession("user", user).ConfigureSession(session.Renew)
	if err != nil {
		return controller.Error(c, 500, "session unavailable")
	}
	return controller.Redirect(next, "/")
}

// Logout drops the session.
func Logout(c plug.Conn) plug.Conn {
	next, err := c.ConfigureSession(session.Drop)
	if err != nil {
		return controller.Error(c, 500, "session unavailable")
	}
	return controller.Redirect(next, "/")
}

func MovedHome(c plug.Conn) plug.Conn { return controller.Redirect(c, "/") }

// WhoAmI reports the role resolved by the api pipeline.
func WhoAmI(c plug.Conn) plug.Conn {
	role, _ := c.GetAssign("role")
	id, _ := c.GetAssign("request_id")
	return controller.JSON(c, map[string]any{"role": role, "request_id": id})
}

func ShowPost(c plug.Conn) plug.Conn {
	p, _ := c.PathParams()
	id, _ := p.Get("id")
	return controller.JSON(c, map[string]string{"id": id})
}

// Echo returns the decoded body parameters.
func Echo(c plug.Conn) plug.Conn {
	body, ok := c.BodyParams()
	if !ok {
		return controller.Error(c, 400, "body not parsed")
	}
	return controller.JSON(c, body.ToMap())
}

// Stats reports runtime counters to admins.
func Stats(c plug.Conn) plug.Conn {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return controller.JSON(c, map[string]any{
		"goroutines": runtime.NumGoroutine(),
		"heap_alloc": ms.HeapAlloc,
		"pid":        c.Owner(),
	})
}
