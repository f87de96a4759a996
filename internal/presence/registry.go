package presence

import (
	"sort"
	"sync"
)

// Conn es el handle de transporte de una sesión en vivo. El registro solo lo
// direcciona; nunca escribe a través de él bajo su lock.
type Conn interface {
	Enqueue(payload []byte) bool
}

// Registry mantiene la tabla de presencia del proceso: a lo sumo una conexión
// direccionable por usuario. El índice inverso permite dar de baja por
// conexión sin recorrer toda la tabla.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Conn
	byConn map[Conn]string
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]Conn),
		byConn: make(map[Conn]string),
	}
}

// Register inserta o sobreescribe la entrada del usuario y devuelve el
// snapshot de usuarios en línea. Si el usuario ya tenía otra conexión
// registrada, esa conexión queda huérfana: sigue abierta pero deja de ser
// direccionable por identidad.
func (r *Registry) Register(userID string, conn Conn) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok && prev != conn {
		delete(r.byConn, prev)
	}
	if prevUser, ok := r.byConn[conn]; ok && prevUser != userID {
		delete(r.byUser, prevUser)
	}
	r.byUser[userID] = conn
	r.byConn[conn] = userID

	return r.onlineLocked()
}

// Unregister elimina la entrada cuya conexión coincide con conn. Es un no-op
// para conexiones huérfanas o nunca anunciadas; changed indica si la tabla
// cambió y por lo tanto corresponde difundir el nuevo snapshot.
func (r *Registry) Unregister(conn Conn) (userID string, online []string, changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[conn]
	if !ok {
		return "", nil, false
	}
	delete(r.byConn, conn)
	delete(r.byUser, userID)

	return userID, r.onlineLocked(), true
}

// Lookup devuelve la conexión viva del usuario, si está registrado.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byUser[userID]
	return conn, ok
}

// Online devuelve el snapshot actual de usuarios en línea.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onlineLocked()
}

func (r *Registry) onlineLocked() []string {
	online := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		online = append(online, userID)
	}
	sort.Strings(online)
	return online
}
