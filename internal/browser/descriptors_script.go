package browser

import "fmt"

// Shared in-page helpers: visibility check, framework-synthetic input
// filtering, form label recovery, and the descriptor shape the Go side
// decodes. Kept as one block so harvest and describe stay in sync.
const descriptorHelpers = `
	const frameworkPatterns = ['react-select', 'rc_select', 'rc-select'];

	const isVisible = (el) => {
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return (
			rect.width > 0 &&
			rect.height > 0 &&
			style.display !== 'none' &&
			style.visibility !== 'hidden' &&
			style.opacity !== '0' &&
			el.type !== 'hidden'
		);
	};

	const isFrameworkInput = (el) => {
		const id = el.id || '';
		if (!id || !id.includes('-input')) return false;
		return frameworkPatterns.some(p => id.includes(p));
	};

	const recoverLabel = (el) => {
		const id = el.id || '';
		if (!id || !frameworkPatterns.some(p => id.includes(p))) return '';
		let current = el;
		for (let i = 0; i < 10; i++) {
			current = current.parentElement;
			if (!current) break;
			const labelEl = current.querySelector('label');
			if (labelEl) return labelEl.textContent.trim();
			let sibling = current.previousElementSibling;
			while (sibling) {
				if (sibling.tagName === 'LABEL') return sibling.textContent.trim();
				const sibLabel = sibling.querySelector('label');
				if (sibLabel) return sibLabel.textContent.trim();
				sibling = sibling.previousElementSibling;
			}
		}
		return el.getAttribute('aria-label') || el.placeholder || '';
	};

	const describe = (el) => {
		const rect = el.getBoundingClientRect();
		return {
			tag: el.tagName.toLowerCase(),
			id: el.id || '',
			name: el.name || '',
			type: el.type || '',
			text: (el.textContent || '').trim().substring(0, 200),
			ariaLabel: el.getAttribute('aria-label') || '',
			testId: el.getAttribute('data-testid') || el.getAttribute('data-test-id') || '',
			placeholder: el.placeholder || '',
			role: el.getAttribute('role') || '',
			href: el.getAttribute('href') || '',
			alt: el.getAttribute('alt') || '',
			label: recoverLabel(el),
			disabled: !!(el.disabled || el.getAttribute('aria-disabled') === 'true'),
			x: Math.round(rect.left + rect.width / 2),
			y: Math.round(rect.top + rect.height / 2)
		};
	};
`

// harvestScript covers the extraction categories: interactive tags, ARIA
// interactive roles, pointer-cursor and onclick carriers, and static tags
// with their own (non-inherited) text.
func harvestScript() string {
	return `(() => {
		try {
			` + descriptorHelpers + `
			const out = [];
			const seen = new Set();

			const push = (el) => {
				if (seen.has(el)) return;
				if (!isVisible(el)) return;
				if (isFrameworkInput(el)) return;
				seen.add(el);
				out.push(describe(el));
			};

			const interactive = 'button, a, input, select, textarea, ' +
				'[role="button"], [role="link"], [role="tab"], [role="menuitem"], ' +
				'[role="combobox"], [role="option"], [role="alert"], [role="dialog"], [onclick]';
			document.querySelectorAll(interactive).forEach(push);

			document.querySelectorAll('div, span, li').forEach(el => {
				if (seen.has(el)) return;
				if (el.onclick !== null || window.getComputedStyle(el).cursor === 'pointer') push(el);
			});

			const hasOwnText = (el) => Array.from(el.childNodes).some(
				n => n.nodeType === 3 && n.textContent.trim().length > 0
			);
			document.querySelectorAll('h1, h2, h3, h4, h5, h6, p, label, span, td, th, li').forEach(el => {
				if (seen.has(el)) return;
				if (hasOwnText(el)) push(el);
			});

			return out;
		} catch (e) {
			return [];
		}
	})()`
}

// describeScript returns descriptors for the visible elements matching one
// selector; the selector must already be quote-escaped.
func describeScript(selector string) string {
	return fmt.Sprintf(`(() => {
		try {
			%s
			const out = [];
			document.querySelectorAll('%s').forEach(el => {
				if (!isVisible(el)) return;
				if (isFrameworkInput(el)) return;
				out.push(describe(el));
			});
			return out;
		} catch (e) {
			return [];
		}
	})()`, descriptorHelpers, selector)
}

// mutationFlagScript arms a page-global dirty flag for the continuous
// monitor; any DOM mutation sets it.
func mutationFlagScript() string {
	return `(() => {
		if (window.__locatorMonitorArmed) return true;
		window.__locatorMonitorArmed = true;
		window.__locatorDomDirty = false;
		const observer = new MutationObserver(() => { window.__locatorDomDirty = true; });
		observer.observe(document.body, {childList: true, subtree: true, attributes: true, characterData: true});
		return true;
	})()`
}

// consumeMutationFlagScript reads and clears the dirty flag in one step.
func consumeMutationFlagScript() string {
	return `(() => {
		const dirty = !!window.__locatorDomDirty;
		window.__locatorDomDirty = false;
		return dirty;
	})()`
}
