package liveness

// MonitorScript is the browser-side companion of the recovery monitor. It is
// served by the gateway at /kiosk/monitor.js so kiosk pages can embed it. It
// mirrors the Go monitor's behavior: heartbeat polling with SSE fast path,
// a single offline overlay, and exactly one cache-busted reload per restart.
const MonitorScript = `(() => {
  if (window.__KIOSK_MONITOR__) return;
  window.__KIOSK_MONITOR__ = true;

  const HEARTBEAT_MS = 15000;
  const RETRY_MS = 5000;
  const KEY = 'kiosk_boot_id';

  let offline = false;
  let recovering = false;
  let es = null;

  function reload() {
    location.replace(location.pathname + '?r=' + Date.now());
  }

  function showOverlay() {
    if (document.getElementById('kiosk-offline-overlay')) return;
    const div = document.createElement('div');
    div.id = 'kiosk-offline-overlay';
    div.style.cssText = 'position:fixed;inset:0;z-index:9999;background:rgba(0,0,0,.85);color:#fff;display:flex;align-items:center;justify-content:center;font-size:1.5rem';
    div.textContent = 'Connection lost. Reconnecting…';
    document.body.appendChild(div);
  }

  function handleBootId(id) {
    const known = localStorage.getItem(KEY);
    if (offline) {
      localStorage.setItem(KEY, id);
      reload();
      return;
    }
    if (!known) {
      localStorage.setItem(KEY, id);
      return;
    }
    if (known !== id) {
      localStorage.setItem(KEY, id);
      reload();
    }
  }

  function goOffline() {
    offline = true;
    showOverlay();
    if (es) { es.close(); es = null; }
    if (recovering) return;
    recovering = true;
    const retry = setInterval(() => {
      fetch('/kiosk/boot', { cache: 'no-store' })
        .then(r => r.json())
        .then(p => { clearInterval(retry); recovering = false; handleBootId(p.bootId); })
        .catch(() => {});
    }, RETRY_MS);
  }

  function connectPush() {
    es = new EventSource('/kiosk/events');
    es.addEventListener('boot', e => handleBootId(e.data));
    es.onerror = () => goOffline();
  }

  setInterval(() => {
    fetch('/kiosk/boot', { cache: 'no-store' })
      .then(r => r.json())
      .then(p => handleBootId(p.bootId))
      .catch(() => goOffline());
  }, HEARTBEAT_MS);

  connectPush();
})();`
